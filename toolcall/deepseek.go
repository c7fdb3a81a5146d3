package toolcall

import (
	"strings"
	"unicode"

	"github.com/fastllm/gateway/api"
	"github.com/tidwall/gjson"
)

const (
	deepseekCallsBegin = "<｜tool▁calls▁begin｜>"
	deepseekCallsEnd    = "<｜tool▁calls▁end｜>"
	deepseekCallBegin   = "<｜tool▁call▁begin｜>"
	deepseekCallEnd     = "<｜tool▁call▁end｜>"
	deepseekSep         = "<｜tool▁sep｜>"
)

type deepseekState int

const (
	deepseekContent deepseekState = iota
	deepseekInCalls
)

type deepseekParser struct {
	state     deepseekState
	buf       strings.Builder
	callIndex int
}

func newDeepSeekParser() *deepseekParser {
	return &deepseekParser{}
}

func (p *deepseekParser) Add(chunk string, done bool) []Event {
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

	if done && p.buf.Len() > 0 && p.state == deepseekContent {
		events = append(events, Event{Content: p.buf.String()})
		p.buf.Reset()
	}

	return events
}

func (p *deepseekParser) eat() (*Event, bool) {
	s := p.buf.String()
	if s == "" {
		return nil, false
	}

	switch p.state {
	case deepseekContent:
		if idx := strings.Index(s, deepseekCallsBegin); idx != -1 {
			before := s[:idx]
			after := s[idx+len(deepseekCallsBegin):]
			p.buf.Reset()
			p.buf.WriteString(after)
			p.state = deepseekInCalls
			if before != "" {
				return &Event{Content: before}, true
			}
			return nil, true
		}
		if ol := overlap(s, deepseekCallsBegin); ol > 0 {
			safe := s[:len(s)-ol]
			p.buf.Reset()
			p.buf.WriteString(s[len(s)-ol:])
			if safe != "" {
				return &Event{Content: safe}, false
			}
			return nil, false
		}
		p.buf.Reset()
		return &Event{Content: s}, false

	case deepseekInCalls:
		if idx := strings.Index(s, deepseekCallBegin); idx != -1 {
			after := s[idx+len(deepseekCallBegin):]
			end := strings.Index(after, deepseekCallEnd)
			if end == -1 {
				return nil, false
			}
			raw := after[:end]
			remaining := after[end+len(deepseekCallEnd):]
			remaining = strings.TrimLeftFunc(remaining, unicode.IsSpace)
			p.buf.Reset()
			p.buf.WriteString(remaining)

			call, err := p.parse(raw)
			if err != nil {
				return nil, true
			}
			return &Event{ToolCall: &call}, true
		}
		if idx := strings.Index(s, deepseekCallsEnd); idx != -1 {
			remaining := s[idx+len(deepseekCallsEnd):]
			remaining = strings.TrimLeftFunc(remaining, unicode.IsSpace)
			p.buf.Reset()
			p.buf.WriteString(remaining)
			p.state = deepseekContent
			return nil, true
		}
		return nil, false
	}
	return nil, false
}

// parse splits DeepSeek's "name<｜tool▁sep｜>{args}" shape. Unlike the
// other dialects the name never arrives wrapped in a JSON envelope, so
// only the arguments half goes through the same verbatim-string-or-
// re-serialized-object normalization the other dialects' JSON shapes
// get; an absent ID still gets the same call_<24-char> default.
func (p *deepseekParser) parse(raw string) (api.ToolCall, error) {
	parts := strings.SplitN(raw, deepseekSep, 2)
	if len(parts) < 2 {
		return api.ToolCall{}, errInvalidToolCall
	}
	name := strings.TrimSpace(parts[0])
	argsRaw := strings.TrimSpace(parts[1])

	if !gjson.Valid(argsRaw) {
		return api.ToolCall{}, errInvalidToolCall
	}
	argsJSON := argsRaw
	if parsed := gjson.Parse(argsRaw); parsed.Type == gjson.String {
		argsJSON = parsed.String()
	}
	if argsJSON == "" {
		argsJSON = "{}"
	}

	call := api.ToolCall{
		ID:    newToolCallID(),
		Index: p.callIndex,
		Function: api.ToolCallFunction{
			Name:      name,
			Arguments: argsJSON,
		},
		Complete: true,
	}
	p.callIndex++
	return call, nil
}
