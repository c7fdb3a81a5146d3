package toolcall

import (
	"strings"
)

const (
	qwen3ToolCallOpen  = "<tool_call>"
	qwen3ToolCallClose = "</tool_call>"
)

type qwen3State int

const (
	qwen3Content qwen3State = iota
	qwen3InToolCall
)

type qwen3Parser struct {
	state     qwen3State
	buf       strings.Builder
	callIndex int
	pending   eventQueue
}

func newQwen3Parser() *qwen3Parser {
	return &qwen3Parser{}
}

func (p *qwen3Parser) nextIndex() int {
	idx := p.callIndex
	p.callIndex++
	return idx
}

func (p *qwen3Parser) Add(chunk string, done bool) []Event {
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
		// anything still buffered at EOF was never a real tag; flush it as
		// content rather than silently dropping it.
		events = append(events, Event{Content: p.buf.String()})
		p.buf.Reset()
	}

	return events
}

func (p *qwen3Parser) eat() (*Event, bool) {
	if ev, ok := p.pending.pop(); ok {
		return ev, true
	}

	s := p.buf.String()
	if s == "" {
		return nil, false
	}

	switch p.state {
	case qwen3Content:
		if idx := strings.Index(s, qwen3ToolCallOpen); idx != -1 {
			before := s[:idx]
			after := s[idx+len(qwen3ToolCallOpen):]
			p.buf.Reset()
			p.buf.WriteString(after)
			p.state = qwen3InToolCall
			if before != "" {
				return &Event{Content: before}, true
			}
			return nil, true
		}
		if ol := overlap(s, qwen3ToolCallOpen); ol > 0 {
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
		idx := strings.Index(s, qwen3ToolCallClose)
		if idx == -1 {
			return nil, false
		}
		raw := s[:idx]
		remaining := s[idx+len(qwen3ToolCallClose):]
		p.buf.Reset()
		p.buf.WriteString(remaining)
		p.state = qwen3Content

		calls, ok := parseToolCallJSON(raw, p.nextIndex)
		if !ok || len(calls) == 0 {
			return nil, true
		}
		evs := toolCallEvents(calls)
		p.pending.push(evs[1:])
		return &evs[0], true
	}
	return nil, false
}
