// Package sse reassembles a chunked server-sent-event stream into logical
// events. It does not interpret event payloads.
package sse

import (
	"bytes"
	"regexp"
	"strings"
)

// DoneSentinel is the data payload that ends a stream.
const DoneSentinel = "[DONE]"

// Event is one logical frame. Data holds the frame's data lines joined by
// a newline. A terminal event carries no text.
type Event struct {
	Data     string
	Terminal bool
}

var (
	frameDelimiter = regexp.MustCompile(`\r?\n\r?\n`)
	lineBreak      = regexp.MustCompile(`\r?\n`)
)

// Decoder buffers raw bytes between Feed calls. Runes split across chunks
// stay in the byte buffer until their frame is complete. The zero value is
// ready to use.
type Decoder struct {
	buf  []byte
	done bool
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk and returns every frame it completed, in order. Once
// the terminal sentinel has been seen the decoder is inert.
func (d *Decoder) Feed(chunk []byte) []Event {
	if d.done {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var events []Event
	for {
		loc := frameDelimiter.FindIndex(d.buf)
		if loc == nil {
			break
		}
		segment := string(d.buf[:loc[0]])
		d.buf = d.buf[loc[1]:]

		event, ok := parseFrame(segment)
		if !ok {
			continue
		}
		events = append(events, event)
		if event.Terminal {
			d.finish()
			break
		}
	}

	d.compact()

	return events
}

// Finish flushes a trailing frame that was never followed by a blank line,
// as happens when the transport closes without the sentinel.
func (d *Decoder) Finish() (Event, bool) {
	if d.done {
		return Event{}, false
	}
	rest := string(d.buf)
	d.finish()

	return parseFrame(rest)
}

// Done reports whether the terminal sentinel has been seen or Finish was
// called.
func (d *Decoder) Done() bool {
	return d.done
}

// Buffered returns the number of bytes held for an incomplete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func (d *Decoder) finish() {
	d.done = true
	d.buf = nil
}

// compact moves the carried tail to the front so the buffer does not grow
// with the total stream size.
func (d *Decoder) compact() {
	if cap(d.buf) > 2*len(d.buf)+readChunkSize {
		d.buf = bytes.Clone(d.buf)
	}
}

func parseFrame(segment string) (Event, bool) {
	if strings.TrimSpace(segment) == "" {
		return Event{}, false
	}

	var data []string
	for _, line := range lineBreak.Split(segment, -1) {
		value, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = append(data, strings.TrimSpace(value))
	}
	if len(data) == 0 {
		return Event{}, false
	}

	joined := strings.Join(data, "\n")
	if joined == DoneSentinel {
		return Event{Terminal: true}, true
	}

	return Event{Data: joined}, true
}
