// Command dseqreplay replays scripted message arrivals
// through the stream ordering engine and prints each decision.
package main

import (
	"os"

	"github.com/gordian-engine/dseq/internal/dreplay"
)

func main() {
	if err := dreplay.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
