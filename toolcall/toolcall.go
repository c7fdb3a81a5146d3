// Package toolcall implements the streaming parsers that split a model's
// raw output into visible content and structured tool calls across the
// handful of dialects models actually emit. Each dialect gets its own
// Parser implementation; Resolve picks the right one for a given model,
// or, when the dialect isn't known ahead of time, returns a State that
// detects it from the first bytes of the stream itself.
package toolcall

import (
	"errors"
	"strings"

	"github.com/fastllm/gateway/api"
	"github.com/fastllm/gateway/toolcall/peg"
)

var errInvalidToolCall = errors.New("toolcall: malformed tool call payload")

// Event is one unit of parsed output: either a content fragment or a
// completed tool call.
type Event struct {
	Content  string
	ToolCall *api.ToolCall
}

// Parser consumes raw model output incrementally and emits Events as soon
// as they become unambiguous. Implementations buffer internally across
// calls to Add so that a tag split across two chunks is never misread.
type Parser interface {
	// Add feeds the next chunk of raw output and returns the events that
	// are now safe to emit. done is true on the final call for a request,
	// and flushes any content the parser was holding back.
	Add(chunk string, done bool) []Event
}

// Dialect names the tool-call wire format a model uses.
type Dialect string

const (
	DialectQwen3      Dialect = "qwen3"      // <tool_call>{json}</tool_call>
	DialectDeepSeek   Dialect = "deepseek"   // <｜tool▁calls▁begin｜>...
	DialectJSONBlock  Dialect = "jsonblock"  // ```json\n{...}\n```
	DialectDirectJSON Dialect = "directjson" // bare {...} brace counting
	DialectNone       Dialect = "none"       // no tool-call support; passthrough

	// DialectUnknown means the dialect hasn't been determined yet: the
	// first request chunk is checked against every known marker, and
	// whichever matches first is locked in for the remainder of the
	// request. Resolve(DialectUnknown) is what a server should pass when
	// it doesn't know ahead of time which dialect a model will use.
	DialectUnknown Dialect = "unknown"
)

// Resolve returns a fresh Parser for the named dialect. DialectUnknown
// returns a *State that performs the detection itself, once, on the
// stream's first bytes.
func Resolve(d Dialect) Parser {
	if d == DialectUnknown {
		return newState()
	}
	return newDialectParser(d)
}

// newDialectParser resolves a dialect that is already known.
func newDialectParser(d Dialect) Parser {
	switch d {
	case DialectQwen3:
		return newQwen3Parser()
	case DialectDeepSeek:
		return newDeepSeekParser()
	case DialectJSONBlock:
		return newJSONBlockParser()
	case DialectDirectJSON:
		return newDirectJSONParser()
	default:
		return passthroughParser{}
	}
}

// State is the per-request auto-detection parser: it buffers raw output
// until one of the four dialects' start markers is seen, locks onto that
// dialect, and forwards everything afterward -- including the buffered
// prefix -- to that dialect's own Parser. If the stream ends with nothing
// ever matching, it falls back to treating the whole thing as plain
// content, the same as DialectNone.
type State struct {
	pending        strings.Builder
	detectedFormat Dialect
	inner          Parser
}

func newState() *State {
	return &State{detectedFormat: DialectUnknown}
}

// DetectedFormat reports which dialect this request's stream locked onto,
// or DialectUnknown if no confident marker has appeared yet.
func (s *State) DetectedFormat() Dialect {
	return s.detectedFormat
}

func (s *State) Add(chunk string, done bool) []Event {
	if s.inner != nil {
		return s.inner.Add(chunk, done)
	}

	s.pending.WriteString(chunk)
	buf := s.pending.String()

	if format, pos, ok := detectFormat(buf); ok {
		s.detectedFormat = format
		s.inner = newDialectParser(format)
		before, after := buf[:pos], buf[pos:]
		s.pending.Reset()

		var events []Event
		if before != "" {
			events = append(events, Event{Content: before})
		}
		events = append(events, s.inner.Add(after, done)...)
		return events
	}

	if done {
		s.detectedFormat = DialectNone
		s.inner = passthroughParser{}
		out := s.pending.String()
		s.pending.Reset()
		if out == "" {
			return nil
		}
		return []Event{{Content: out}}
	}

	cut := ambiguousFrom(buf)
	if cut <= 0 {
		return nil
	}
	safe, rest := buf[:cut], buf[cut:]
	s.pending.Reset()
	s.pending.WriteString(rest)
	return []Event{{Content: safe}}
}

// detectFormat looks for the first matching dialect start marker in buf:
// Qwen3's "<tool_call>", DeepSeek's "<｜tool▁calls▁begin｜>", JsonBlock's
// "```json", or DirectJson's "a bare { co-occurring with "name" and
// "arguments"". The earliest position wins; ties are broken in that
// declared order, matching "first matching marker wins".
func detectFormat(buf string) (Dialect, int, bool) {
	candidates := []peg.Candidate[Dialect]{
		{Marker: qwen3ToolCallOpen, Value: DialectQwen3},
		{Marker: deepseekCallsBegin, Value: DialectDeepSeek},
		{Marker: jsonBlockOpen, Value: DialectJSONBlock},
	}
	value, _, pos, _, ok := peg.Choice(buf, candidates)

	djPos, djFound := directJSONTrigger(buf)

	switch {
	case ok && djFound:
		if djPos < pos {
			return DialectDirectJSON, djPos, true
		}
		return value, pos, true
	case ok:
		return value, pos, true
	case djFound:
		return DialectDirectJSON, djPos, true
	default:
		return DialectUnknown, -1, false
	}
}

// directJSONTrigger reports the position of the first "{" in buf, but
// only once the buffer also contains both "name" and "arguments" --
// otherwise a bare object from a model not in JSON mode would be
// mistaken for a tool call on its very first brace.
func directJSONTrigger(buf string) (int, bool) {
	idx := strings.IndexByte(buf, '{')
	if idx == -1 {
		return -1, false
	}
	if strings.Contains(buf, `"name"`) && strings.Contains(buf, `"arguments"`) {
		return idx, true
	}
	return -1, false
}

// ambiguousFrom returns the earliest index in buf from which the content
// might still turn into a recognized marker: the start of a not-yet-ruled
// -out tag split across chunks, or an unresolved "{" that could still
// gain a co-occurring "name"/"arguments" later in the stream. Everything
// before that index is safe to flush as plain content now.
func ambiguousFrom(buf string) int {
	cut := len(buf)
	for _, m := range []string{qwen3ToolCallOpen, deepseekCallsBegin, jsonBlockOpen} {
		if ol := peg.Overlap(buf, m); ol > 0 {
			if c := len(buf) - ol; c < cut {
				cut = c
			}
		}
	}
	if idx := strings.IndexByte(buf, '{'); idx != -1 && idx < cut {
		cut = idx
	}
	return cut
}

type passthroughParser struct{}

func (passthroughParser) Add(chunk string, done bool) []Event {
	if chunk == "" {
		return nil
	}
	return []Event{{Content: chunk}}
}

// overlap returns the length of the longest suffix of s that is also a
// prefix of delim -- used to detect a tag that might be split across two
// Add calls before committing to "this is content, not a tag".
func overlap(s, delim string) int {
	return peg.Overlap(s, delim)
}

// eventQueue holds tool-call Events produced in bulk (e.g. a "tool_calls"
// array shape that normalizes to several calls at once) so a Parser's
// single-event-per-eat() loop can drain them one at a time without
// re-scanning the buffer.
type eventQueue struct {
	pending []Event
}

func (q *eventQueue) push(evs []Event) {
	q.pending = append(q.pending, evs...)
}

func (q *eventQueue) pop() (*Event, bool) {
	if len(q.pending) == 0 {
		return nil, false
	}
	ev := q.pending[0]
	q.pending = q.pending[1:]
	return &ev, true
}

func toolCallEvents(calls []api.ToolCall) []Event {
	evs := make([]Event, len(calls))
	for i := range calls {
		evs[i] = Event{ToolCall: &calls[i]}
	}
	return evs
}
