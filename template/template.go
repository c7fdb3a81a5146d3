// Package template renders a chat request's messages and tools into the
// prompt string an engine expects, using text/template the way the teacher
// treats its chat templates as an external, never-modified leaf dependency.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/template"
	"text/template/parse"
	"time"

	"github.com/fastllm/gateway/api"
)

func marshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// defaultTemplate is the single fixed chat template the gateway renders
// against. It mirrors the common ChatML-style shape seen across the
// teacher's model templates: a system block, then each message tagged by
// role, then an open assistant turn when add_generation_prompt is set.
const defaultTemplate = `{{- if .System }}<|im_start|>system
{{ .System }}<|im_end|>
{{ end }}
{{- range .Messages }}<|im_start|>{{ .Role }}
{{ .Content }}<|im_end|>
{{ end }}
{{- if .AddGenerationPrompt }}<|im_start|>assistant
{{ end }}`

// Template wraps a parsed text/template alongside the raw source so
// capability detection (Vars) can walk the original parse tree.
type Template struct {
	*template.Template
	raw string
}

// Default is the gateway's one chat template, parsed once at init.
var Default = Must(Parse(defaultTemplate))

// Must panics if err is non-nil, for use with Parse at package init time.
func Must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return t
}

func Parse(s string) (*Template, error) {
	tmpl := template.New("").Option("missingkey=zero").Funcs(template.FuncMap{
		"now": time.Now,
	})

	tmpl, err := tmpl.Parse(s)
	if err != nil {
		return nil, err
	}

	return &Template{Template: tmpl, raw: s}, nil
}

func (t *Template) String() string {
	return t.raw
}

// Vars returns the lowercase set of top-level identifiers the template
// references, used to detect whether it natively supports tools, a system
// role, and so on -- the same way the teacher inspects its own templates
// before deciding whether to inject supplementary prompt text.
func (t *Template) Vars() []string {
	set := make(map[string]struct{})
	for _, tt := range t.Templates() {
		for _, n := range tt.Root.Nodes {
			for _, v := range parseNode(n) {
				set[strings.ToLower(v)] = struct{}{}
			}
		}
	}

	vars := make([]string, 0, len(set))
	for v := range set {
		vars = append(vars, v)
	}
	slices.Sort(vars)
	return vars
}

// Capabilities summarizes what the active template natively understands,
// so handlers can decide whether to pre-inject tool/JSON-mode text or rely
// on the template itself.
type Capabilities struct {
	SupportsTools             bool
	SupportsToolCalls         bool
	SupportsSystemRole        bool
	SupportsParallelToolCalls bool
	RequiresObjectArguments   bool
	SupportsReasoning         bool
}

func (t *Template) Capabilities() Capabilities {
	vars := t.Vars()
	has := func(name string) bool { return slices.Contains(vars, name) }
	return Capabilities{
		SupportsTools:      has("tools"),
		SupportsToolCalls:  has("toolcalls") || has("tool_calls"),
		SupportsSystemRole: has("system"),
		SupportsReasoning:  has("reasoning") || has("thinking"),
	}
}

// renderMessage is the shape exposed to the template for each collated
// message: Content carries either the original text or an
// injected system-prompt block.
type renderMessage struct {
	Role    string
	Content string
}

// Values carries the inputs an external Jinja-compatible renderer would
// receive: the message list, the tool catalog, whether to open a fresh
// assistant turn, and the tokens/clock the template may reference.
type Values struct {
	Messages            []api.Message
	Tools               []api.Tool
	AddGenerationPrompt bool
	BOSToken            string
	EOSToken            string
	Now                 time.Time
}

// Execute renders v against t, collating consecutive same-role messages
// and folding system messages into one leading block the way the teacher's
// Template.Execute does.
func (t *Template) Execute(w *bytes.Buffer, v Values) error {
	system, collated := collate(v.Messages)

	rendered := make([]renderMessage, len(collated))
	for i, m := range collated {
		rendered[i] = renderMessage{Role: string(m.Role), Content: m.Text()}
	}

	return t.Template.Execute(w, map[string]any{
		"System":              system,
		"Messages":            rendered,
		"Tools":               v.Tools,
		"AddGenerationPrompt": v.AddGenerationPrompt,
		"BOSToken":            v.BOSToken,
		"EOSToken":            v.EOSToken,
		"Now":                 v.Now,
	})
}

func collate(msgs []api.Message) (system string, collated []api.Message) {
	for _, msg := range msgs {
		if msg.Role == api.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Text()
			continue
		}

		if len(collated) > 0 && collated[len(collated)-1].Role == msg.Role {
			collated[len(collated)-1].Content = collated[len(collated)-1].Text() + "\n\n" + msg.Text()
		} else {
			collated = append(collated, msg)
		}
	}
	return
}

// ToolSystemPrompt builds the "# Tools" injection block described for
// templates that do not natively support tools. suffix depends on the
// request's tool_choice.
func ToolSystemPrompt(tools []api.Tool, choice *api.ToolChoice) string {
	var b strings.Builder
	b.WriteString("# Tools\n\nYou have access to the following tools:\n\n")
	for _, tool := range tools {
		fmt.Fprintf(&b, "## %s\n%s\n\nParameters:\n```json\n", tool.Function.Name, tool.Function.Description)
		schema, _ := marshalIndent(tool.Function.Parameters)
		b.Write(schema)
		b.WriteString("\n```\n\n")
	}
	b.WriteString("# Tool Call Format\n\nWhen you need to use a tool, respond with a JSON object in this exact format:\n```json\n{\n  \"name\": \"tool_name\",\n  \"arguments\": { ... }\n}\n```\n\n")

	mode := "auto"
	if choice != nil {
		mode = choice.Mode
	}
	switch mode {
	case "required":
		b.WriteString("You MUST use one of the available tools.")
	case "none":
		b.WriteString("Do NOT use any tools.")
	default:
		b.WriteString("Use a tool if it helps answer the request.")
	}

	return b.String()
}

// JSONModeSystemPrompt builds the instruction injected when response_format
// constrains output to JSON.
func JSONModeSystemPrompt(format *api.ResponseFormat) string {
	if format == nil {
		return ""
	}
	base := "You must respond with valid JSON only. Do not include any text outside of the JSON object."
	if format.Type != "json_schema" || format.JSONSchema == nil {
		return base
	}
	schema, _ := marshalIndent(format.JSONSchema.Schema)
	return base + "\n\n" + string(schema)
}

// InjectSystemText prepends text to the system message, creating one if
// absent, matching the teacher's "inject into existing or prepend new"
// behavior for both tool and JSON-mode injection.
func InjectSystemText(messages []api.Message, text string) []api.Message {
	if text == "" {
		return messages
	}
	for i, m := range messages {
		if m.Role == api.RoleSystem {
			out := slices.Clone(messages)
			out[i].Content = text + "\n\n" + m.Text()
			return out
		}
	}
	return append([]api.Message{{Role: api.RoleSystem, Content: text}}, messages...)
}

func parseNode(n parse.Node) []string {
	switch n := n.(type) {
	case *parse.ActionNode:
		return parseNode(n.Pipe)
	case *parse.IfNode:
		names := parseNode(n.Pipe)
		names = append(names, parseNode(n.List)...)
		if n.ElseList != nil {
			names = append(names, parseNode(n.ElseList)...)
		}
		return names
	case *parse.RangeNode:
		names := parseNode(n.Pipe)
		names = append(names, parseNode(n.List)...)
		if n.ElseList != nil {
			names = append(names, parseNode(n.ElseList)...)
		}
		return names
	case *parse.WithNode:
		names := parseNode(n.Pipe)
		names = append(names, parseNode(n.List)...)
		if n.ElseList != nil {
			names = append(names, parseNode(n.ElseList)...)
		}
		return names
	case *parse.PipeNode:
		var names []string
		for _, c := range n.Cmds {
			for _, a := range c.Args {
				names = append(names, parseNode(a)...)
			}
		}
		return names
	case *parse.ListNode:
		var names []string
		for _, n := range n.Nodes {
			names = append(names, parseNode(n)...)
		}
		return names
	case *parse.FieldNode:
		return n.Ident
	case *parse.TemplateNode:
		return parseNode(n.Pipe)
	}
	return nil
}
