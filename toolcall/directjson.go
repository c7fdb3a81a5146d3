package toolcall

import (
	"strings"
	"unicode"

	"github.com/fastllm/gateway/api"
	"github.com/fastllm/gateway/toolcall/peg"
	"github.com/tidwall/gjson"
)

// directJSONParser handles models that, given a JSON-mode system prompt,
// emit a bare top-level JSON object with no surrounding tags at all. It
// uses peg.Capture to track brace depth and string-quote state across
// chunks so a split that lands mid-object resumes from where the last
// Add call left off, instead of re-scanning bytes it already counted.
type directJSONParser struct {
	state     qwen3State
	buf       strings.Builder
	capture   peg.Capture
	callIndex int
	pending   eventQueue
}

func newDirectJSONParser() *directJSONParser {
	return &directJSONParser{}
}

func (p *directJSONParser) nextIndex() int {
	idx := p.callIndex
	p.callIndex++
	return idx
}

func (p *directJSONParser) Add(chunk string, done bool) []Event {
	p.buf.WriteString(chunk)

	var events []Event
	for {
		ev, keepGoing := p.eat()
		if ev != nil {
			events = append(events, *ev)
		}
		if !keepGoing {
			break
		}
	}

	if done && p.buf.Len() > 0 {
		events = append(events, Event{Content: p.buf.String()})
		p.buf.Reset()
	}

	return events
}

func (p *directJSONParser) eat() (*Event, bool) {
	if ev, ok := p.pending.pop(); ok {
		return ev, true
	}

	s := p.buf.String()
	if s == "" {
		return nil, false
	}

	switch p.state {
	case qwen3Content:
		trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
		if trimmed == "" {
			return nil, false
		}
		if trimmed[0] != '{' {
			p.buf.Reset()
			return &Event{Content: s}, false
		}
		p.buf.Reset()
		p.buf.WriteString(trimmed)
		p.state = qwen3InToolCall
		p.capture.Reset()
		return nil, true

	case qwen3InToolCall:
		end, found := p.capture.Feed(s)
		if !found {
			return nil, false
		}
		raw := s[:end]
		remaining := s[end:]
		p.buf.Reset()
		p.buf.WriteString(remaining)
		p.state = qwen3Content
		p.capture.Reset()

		call, ok := p.parse(raw)
		if !ok {
			return &Event{Content: raw}, true
		}
		return &Event{ToolCall: &call}, true
	}
	return nil, false
}

func (p *directJSONParser) parse(raw string) (api.ToolCall, bool) {
	if !gjson.Valid(raw) {
		return api.ToolCall{}, false
	}
	if calls, ok := parseToolCallJSON(raw, p.nextIndex); ok && len(calls) > 0 {
		if len(calls) > 1 {
			p.pending.push(toolCallEvents(calls[1:]))
		}
		return calls[0], true
	}
	// no "name" field: treat the whole object as the arguments of a single
	// implicitly-named tool, the shape some JSON-mode prompts produce.
	call := api.ToolCall{
		ID:       newToolCallID(),
		Index:    p.nextIndex(),
		Function: api.ToolCallFunction{Name: "", Arguments: raw},
		Complete: true,
	}
	return call, true
}
