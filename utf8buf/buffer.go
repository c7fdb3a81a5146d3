// Package utf8buf holds back the trailing bytes of a token stream that
// might be the first bytes of a multi-byte UTF-8 rune, so callers never see
// an invalid or truncated rune even when the engine emits raw bytes one
// token at a time.
package utf8buf

import "unicode/utf8"

// Buffer accumulates raw bytes and releases only the longest valid UTF-8
// prefix on each Write, holding back up to utf8.UTFMax-1 trailing bytes
// that could still complete into a rune once more bytes arrive.
type Buffer struct {
	pending []byte
}

// Write appends b to the buffer and returns the text that is now safe to
// emit to the client. Any bytes that might be the unfinished start of a
// multi-byte rune are held back for the next call.
func (b *Buffer) Write(chunk []byte) string {
	b.pending = append(b.pending, chunk...)
	if len(b.pending) == 0 {
		return ""
	}

	cut := len(b.pending)
	for i := 0; i < len(b.pending); {
		if len(b.pending)-i < utf8.UTFMax {
			r, size := utf8.DecodeRune(b.pending[i:])
			if r == utf8.RuneError && size == 1 && !utf8.RuneStart(b.pending[i]) {
				// a continuation byte with nothing before it: genuinely
				// invalid, not incomplete. Let it through.
			} else if r == utf8.RuneError && size == 1 {
				// a lead byte whose continuation bytes haven't arrived yet
				cut = i
				break
			}
			i += size
			continue
		}
		_, size := utf8.DecodeRune(b.pending[i:])
		if size == 0 {
			size = 1
		}
		i += size
	}

	out := string(b.pending[:cut])
	b.pending = append(b.pending[:0], b.pending[cut:]...)
	return out
}

// WriteString is the string-oriented form of Write.
func (b *Buffer) WriteString(chunk string) string {
	return b.Write([]byte(chunk))
}

// Flush releases the longest valid UTF-8 prefix still held, discarding any
// genuinely invalid trailing bytes. Call this once when the stream ends.
func (b *Buffer) Flush() string {
	if len(b.pending) == 0 {
		return ""
	}
	valid := b.pending
	for len(valid) > 0 && !utf8.Valid(valid) {
		_, size := utf8.DecodeLastRune(valid)
		if size == 0 {
			size = 1
		}
		valid = valid[:len(valid)-size]
	}
	out := string(valid)
	b.pending = nil
	return out
}
