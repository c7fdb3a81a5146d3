package toolcall

import (
	"strings"
)

const (
	jsonBlockOpen  = "```json"
	jsonBlockClose = "```"
)

// jsonBlockParser handles models that wrap a single tool call in a
// fenced json code block instead of dedicated tags.
type jsonBlockParser struct {
	state     qwen3State // reuse the two-state shape: content vs inside-fence
	buf       strings.Builder
	callIndex int
	pending   eventQueue
}

func newJSONBlockParser() *jsonBlockParser {
	return &jsonBlockParser{}
}

func (p *jsonBlockParser) nextIndex() int {
	idx := p.callIndex
	p.callIndex++
	return idx
}

func (p *jsonBlockParser) Add(chunk string, done bool) []Event {
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

func (p *jsonBlockParser) eat() (*Event, bool) {
	if ev, ok := p.pending.pop(); ok {
		return ev, true
	}

	s := p.buf.String()
	if s == "" {
		return nil, false
	}

	switch p.state {
	case qwen3Content:
		if idx := strings.Index(s, jsonBlockOpen); idx != -1 {
			before := s[:idx]
			after := s[idx+len(jsonBlockOpen):]
			p.buf.Reset()
			p.buf.WriteString(after)
			p.state = qwen3InToolCall
			if before != "" {
				return &Event{Content: before}, true
			}
			return nil, true
		}
		if ol := overlap(s, jsonBlockOpen); ol > 0 {
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

	case qwen3InToolCall:
		idx := strings.Index(s, jsonBlockClose)
		if idx == -1 {
			return nil, false
		}
		raw := strings.TrimSpace(s[:idx])
		remaining := s[idx+len(jsonBlockClose):]
		p.buf.Reset()
		p.buf.WriteString(remaining)
		p.state = qwen3Content

		calls, ok := parseToolCallJSON(raw, p.nextIndex)
		if !ok || len(calls) == 0 {
			return &Event{Content: "```json" + raw + jsonBlockClose}, true
		}
		evs := toolCallEvents(calls)
		p.pending.push(evs[1:])
		return &evs[0], true
	}
	return nil, false
}
