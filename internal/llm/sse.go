package llm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// event is one server-sent event.
type event struct {
	name string
	data string
}

// readEvents decodes a text/event-stream body and calls fn for every
// dispatched event. Returning a non-nil error from fn stops the read;
// errStop ends it cleanly.
func readEvents(r io.Reader, fn func(event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var ev event
	var data []string
	dispatch := func() error {
		if len(data) == 0 {
			ev = event{}
			return nil
		}
		ev.data = strings.Join(data, "\n")
		err := fn(ev)
		ev, data = event{}, data[:0]
		return err
	}

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if err := dispatch(); err != nil {
				return stopped(err)
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return stopped(dispatch())
}

var errStop = errors.New("stop reading events")

func stopped(err error) error {
	if err == errStop {
		return nil
	}
	return err
}
