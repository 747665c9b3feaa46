// Package gcstat records garbage-collector telemetry the VM emits as an
// optional, zero-overhead-when-absent observational side channel, and
// renders a recorded session as a heap-growth chart.
//
// This is purely diagnostic: nothing in internal/gc or internal/vm reads
// telemetry back to make collection decisions.
package gcstat

import (
	"bufio"
	"encoding/json"
	"io"
)

// Event describes one completed collection.
type Event struct {
	Seq         int     `json:"seq"`
	BeforeBytes uint64  `json:"before_bytes"`
	AfterBytes  uint64  `json:"after_bytes"`
	NextGC      uint64  `json:"next_gc"`
	Cause       string  `json:"cause"`
}

// Recorder receives Events as they happen. A gc.Heap holds a Recorder (nil
// by default) and calls Record once per completed collection, never per
// allocation.
type Recorder interface {
	Record(Event)
}

// JSONLWriter is a Recorder that appends one JSON object per line, the same
// shape dashscrape and friends use for simple append-only logs.
type JSONLWriter struct {
	w   io.Writer
	seq int
}

// NewJSONLWriter wraps w as a Recorder.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{w: w}
}

func (j *JSONLWriter) Record(e Event) {
	j.seq++
	e.Seq = j.seq
	enc := json.NewEncoder(j.w)
	if err := enc.Encode(e); err != nil {
		// Telemetry is best-effort; a write failure here must never abort
		// a collection in progress.
		return
	}
}

// ReadEvents parses a JSONL telemetry log written by JSONLWriter.
func ReadEvents(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
