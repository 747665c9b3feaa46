// Command breezegcplot reads a newline-delimited JSON GC telemetry log
// (as written by internal/gcstat.JSONLWriter, e.g. by a VM run with
// -gc-stress and a recorder attached) and renders it as an SVG chart of
// heap occupancy over the run.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nobertos/breeze-lang/internal/gcstat"
)

func main() {
	width := flag.Int("w", 800, "chart width in pixels")
	height := flag.Int("h", 400, "chart height in pixels")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s events.jsonl out.svg\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(64)
	}

	in, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()

	events, err := gcstat.ReadEvents(in)
	if err != nil {
		log.Fatal(err)
	}

	out, err := os.Create(flag.Arg(1))
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	if err := gcstat.WriteSVG(events, out, *width, *height); err != nil {
		log.Fatal(err)
	}
}
