// Package eventstream reads server-sent event streams.
package eventstream

import (
	"bufio"
	"io"
	"strings"
)

// Event is one server-sent event. Data joins all data lines of the event
// with newlines, as the SSE specification requires.
type Event struct {
	Name string
	Data string
}

// Reader decodes server-sent events from a byte stream. Providers differ in
// whether a JSON payload occupies one data line or several, and in line
// endings; Reader handles both.
type Reader struct {
	br *bufio.Reader
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next event, or io.EOF once the stream is exhausted. Empty
// events, comment lines, and unknown fields (id:, retry:) are skipped.
func (r *Reader) Next() (Event, error) {
	var event Event
	var dataLines []string

	flush := func() (Event, bool) {
		if len(dataLines) == 0 && event.Name == "" {
			return Event{}, false
		}
		event.Data = strings.TrimSpace(strings.Join(dataLines, "\n"))
		if event.Data == "" && event.Name == "" {
			return Event{}, false
		}
		return event, true
	}

	for {
		line, err := r.br.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if len(line) > 0 {
					if name, data, ok := parseField(strings.TrimRight(line, "\r\n")); ok {
						applyField(&event, &dataLines, name, data)
					}
				}
				if ev, ok := flush(); ok {
					return ev, nil
				}
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			if ev, ok := flush(); ok {
				return ev, nil
			}
			// Blank line with nothing buffered: keep reading.
			event = Event{}
			dataLines = dataLines[:0]
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // comment / keepalive
		}
		if name, data, ok := parseField(line); ok {
			applyField(&event, &dataLines, name, data)
		}
	}
}

func parseField(line string) (name, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, "", true
	}
	name = line[:idx]
	value = line[idx+1:]
	value = strings.TrimPrefix(value, " ")
	return name, value, true
}

func applyField(event *Event, dataLines *[]string, name, value string) {
	switch name {
	case "event":
		event.Name = value
	case "data":
		*dataLines = append(*dataLines, value)
	}
	// id: and retry: are intentionally ignored.
}
