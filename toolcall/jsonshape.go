package toolcall

import (
	"crypto/rand"

	"github.com/fastllm/gateway/api"
	"github.com/tidwall/gjson"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newToolCallID returns a fresh call_<24 alphanumeric chars> identifier --
// the default ID a model's tool call gets when it doesn't supply one of
// its own.
func newToolCallID() string {
	var raw [24]byte
	_, _ = rand.Read(raw[:])
	var id [24]byte
	for i, b := range raw {
		id[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return "call_" + string(id[:])
}

// parseToolCallJSON normalizes the five tool-call JSON shapes models
// actually emit into zero or more api.ToolCall values:
//
//	{"name":..., "arguments":{...}}   -- arguments re-serialized to text
//	{"name":..., "arguments":"..."}   -- arguments used verbatim
//	{"name":..., "parameters":{...}}  -- parameters treated as arguments
//	{"function":{...}, "id":...}      -- recurse into function, keep id
//	{"tool_calls":[...]}              -- recurse into every element
//
// nextIndex is called once per emitted call, in order, to assign Index.
func parseToolCallJSON(raw string, nextIndex func() int) ([]api.ToolCall, bool) {
	if !gjson.Valid(raw) {
		return nil, false
	}
	return normalizeToolCallValue(gjson.Parse(raw), "", nextIndex)
}

func normalizeToolCallValue(v gjson.Result, inheritedID string, nextIndex func() int) ([]api.ToolCall, bool) {
	if calls := v.Get("tool_calls"); calls.Exists() && calls.IsArray() {
		var out []api.ToolCall
		any := false
		calls.ForEach(func(_, elem gjson.Result) bool {
			if sub, ok := normalizeToolCallValue(elem, "", nextIndex); ok {
				any = true
				out = append(out, sub...)
			}
			return true
		})
		return out, any
	}

	if fn := v.Get("function"); fn.Exists() {
		id := inheritedID
		if idField := v.Get("id"); idField.Exists() {
			id = idField.String()
		}
		return normalizeToolCallValue(fn, id, nextIndex)
	}

	name := v.Get("name")
	if !name.Exists() {
		return nil, false
	}

	argsJSON := argumentsOf(v, "arguments")
	if argsJSON == "" {
		argsJSON = argumentsOf(v, "parameters")
	}
	if argsJSON == "" {
		argsJSON = "{}"
	}

	id := inheritedID
	if idField := v.Get("id"); idField.Exists() {
		id = idField.String()
	}
	if id == "" {
		id = newToolCallID()
	}

	call := api.ToolCall{
		ID:    id,
		Index: nextIndex(),
		Function: api.ToolCallFunction{
			Name:      name.String(),
			Arguments: argsJSON,
		},
		Complete: true,
	}
	return []api.ToolCall{call}, true
}

// argumentsOf returns field as JSON text: verbatim when the field is
// itself a JSON string (the model already serialized its arguments),
// re-serialized from the parsed value otherwise.
func argumentsOf(v gjson.Result, field string) string {
	f := v.Get(field)
	if !f.Exists() {
		return ""
	}
	if f.Type == gjson.String {
		return f.String()
	}
	return f.Raw
}
