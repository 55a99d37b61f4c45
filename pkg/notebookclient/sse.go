package notebookclient

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Event is one server-sent event.
type Event struct {
	Name string
	Data string
}

// EventReader decodes a text/event-stream body incrementally. Comment lines
// are skipped and multi-line data fields are joined with newlines.
type EventReader struct {
	r *bufio.Reader
}

func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{r: bufio.NewReader(r)}
}

// Next blocks until a complete event has arrived. It returns io.EOF when the
// stream ends; an unterminated final event is still delivered.
func (er *EventReader) Next() (Event, error) {
	var (
		event   Event
		data    []string
		hasData bool
	)
	for {
		line, err := er.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Event{}, err
		}
		eof := err != nil
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if event.Name != "" || hasData {
				event.Data = strings.Join(data, "\n")
				return event, nil
			}
			if eof {
				return Event{}, io.EOF
			}
			continue
		}

		if !strings.HasPrefix(line, ":") {
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				event.Name = value
			case "data":
				data = append(data, value)
				hasData = true
			}
		}

		if eof {
			if event.Name != "" || hasData {
				event.Data = strings.Join(data, "\n")
				return event, nil
			}
			return Event{}, io.EOF
		}
	}
}
