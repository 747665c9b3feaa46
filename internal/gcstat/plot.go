package gcstat

import (
	"io"

	"github.com/aclements/go-gg/gg"
	"github.com/aclements/go-gg/table"
)

// plotRow is one point on the heap-growth chart: the collection sequence
// number on the X axis (a real timestamp isn't meaningful across runs, but
// the monotonic sequence is) against heap bytes live after that collection
// and the threshold that triggers the next one.
type plotRow struct {
	Seq        float64
	AfterBytes float64
	NextGC     float64
}

// WriteSVG renders a recorded telemetry session as an SVG chart: heap bytes
// live after each collection and the next-GC threshold, both against
// collection sequence number. This follows the same
// struct-slice -> table.TableFromStructs -> gg.Plot -> WriteSVG pipeline
// benchplot uses to turn benchmark results into a chart.
func WriteSVG(events []Event, w io.Writer, width, height int) error {
	rows := make([]plotRow, len(events))
	for i, e := range events {
		rows[i] = plotRow{
			Seq:        float64(e.Seq),
			AfterBytes: float64(e.AfterBytes),
			NextGC:     float64(e.NextGC),
		}
	}

	tab := table.TableFromStructs(rows)
	plot := gg.NewPlot(tab)
	plot.SetScale("y", gg.NewLinearScaler().Include(0))
	plot.Add(gg.LayerLines{X: "Seq", Y: "AfterBytes"})
	plot.Add(gg.LayerLines{X: "Seq", Y: "NextGC"})
	return plot.WriteSVG(w, width, height)
}
