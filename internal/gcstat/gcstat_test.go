package gcstat

import (
	"bytes"
	"strings"
	"testing"
)

func TestJSONLWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec := NewJSONLWriter(&buf)
	rec.Record(Event{BeforeBytes: 100, AfterBytes: 40, NextGC: 80, Cause: "threshold"})
	rec.Record(Event{BeforeBytes: 90, AfterBytes: 50, NextGC: 160, Cause: "threshold"})

	events, err := ReadEvents(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Seq != 1 || events[1].Seq != 2 {
		t.Errorf("sequence numbers = %d, %d; want 1, 2", events[0].Seq, events[1].Seq)
	}
	if events[1].NextGC != 160 {
		t.Errorf("events[1].NextGC = %d, want 160", events[1].NextGC)
	}
}

func TestWriteSVGProducesOutput(t *testing.T) {
	events := []Event{
		{Seq: 1, AfterBytes: 1000, NextGC: 2000},
		{Seq: 2, AfterBytes: 1800, NextGC: 4000},
		{Seq: 3, AfterBytes: 3100, NextGC: 8000},
	}
	var buf bytes.Buffer
	if err := WriteSVG(events, &buf, 640, 480); err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("WriteSVG produced no output")
	}
}
