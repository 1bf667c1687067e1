package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"ctrf/internal/domain"
)

// ReadEvents decodes a stream of JSON encoded domain events, one per finished
// test, and passes each to emit.
func ReadEvents(r io.Reader, emit Sink) (int, error) {
	dec := json.NewDecoder(r)
	n := 0
	for {
		var ev domain.Event
		err := dec.Decode(&ev)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("decode event %d: %w", n+1, err)
		}
		emit(ev)
		n++
	}
}
