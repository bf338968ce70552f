package sse

import (
	"errors"
	"io"
)

const readChunkSize = 4 * 1024

// Scanner yields events from a reader. It stops after the terminal event,
// at EOF, or on the first read error.
//
//	scanner := sse.NewScanner(body)
//	for scanner.Next() {
//	    event := scanner.Event()
//	}
//	if err := scanner.Err(); err != nil {
//	    // read failed
//	}
type Scanner struct {
	reader  io.Reader
	decoder *Decoder
	chunk   []byte
	pending []Event
	current Event
	eof     bool
	err     error
}

func NewScanner(reader io.Reader) *Scanner {
	return &Scanner{
		reader:  reader,
		decoder: NewDecoder(),
		chunk:   make([]byte, readChunkSize),
	}
}

func (s *Scanner) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.current = s.pending[0]
			s.pending = s.pending[1:]
			return true
		}
		if s.eof || s.err != nil || s.decoder.Done() {
			return false
		}

		n, err := s.reader.Read(s.chunk)
		if n > 0 {
			s.pending = append(s.pending, s.decoder.Feed(s.chunk[:n])...)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			s.eof = true
			if event, ok := s.decoder.Finish(); ok {
				s.pending = append(s.pending, event)
			}
			continue
		}
		s.err = err
	}
}

func (s *Scanner) Event() Event {
	return s.current
}

// Err returns the read error that stopped the scanner, or nil after a
// clean end of stream.
func (s *Scanner) Err() error {
	return s.err
}
