package dreplay

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/gordian-engine/dseq"
)

// Event kinds.
const (
	// A step from the scenario.
	EventAdmit = "admit"

	// A held sequence number admitted again after its waker fired.
	EventReadmit = "readmit"
)

// Event records one call to Admit.
type Event struct {
	Kind string `json:"kind"`
	Seq  uint64 `json:"seq"`

	Decision string   `json:"decision"`
	Nack     []uint64 `json:"nack,omitempty"`
	Reason   string   `json:"reason,omitempty"`

	// State after the call.
	Tip      uint64 `json:"tip"`
	SeenMask uint64 `json:"seen_mask,omitempty"`

	// Held sequence numbers whose wakers fired during the call.
	Woke []uint64 `json:"woke,omitempty"`
}

// Trace is the result of [Run].
type Trace struct {
	Scenario    string                 `json:"scenario"`
	Description string                 `json:"description,omitempty"`
	Semantics   dseq.DeliverySemantics `json:"semantics"`
	Events      []Event                `json:"events"`

	// Sequence numbers still held when the scenario ended.
	Held []uint64 `json:"held,omitempty"`
}

// Run feeds every step of s through a new engine,
// re-admitting held numbers as soon as they are woken,
// the same way a receive loop would.
func Run(log *slog.Logger, s *Scenario) Trace {
	e := dseq.NewWithConfig(dseq.EngineConfig{
		Semantics:  s.Semantics,
		InitialTip: s.InitialTip,
		NackLimit:  s.NackLimit,
	})

	tr := Trace{
		Scenario:    s.Name,
		Description: s.Description,
		Semantics:   s.Semantics,
	}

	held := make(map[uint64]bool)

	// Wakers fired during the current Admit call.
	var firing []uint64

	// Woken numbers not yet re-admitted.
	var queue []uint64

	admit := func(kind string, seq uint64) {
		firing = firing[:0]
		res := e.Admit(seq, "replay", 0, dseq.WakerFunc(func() {
			firing = append(firing, seq)
		}))

		ev := Event{
			Kind:     kind,
			Seq:      seq,
			Decision: res.Decision.String(),
			Nack:     res.Nack,
			Tip:      e.Tip(),
			SeenMask: e.SeenMask(),
		}

		switch res.Decision {
		case dseq.Hold:
			held[seq] = true
		case dseq.Reject:
			ev.Reason = res.Err.Kind.String()
			delete(held, seq)
		default:
			delete(held, seq)
		}

		if len(firing) > 0 {
			ev.Woke = slices.Clone(firing)
			queue = append(queue, firing...)
		}

		tr.Events = append(tr.Events, ev)
	}

	for _, seq := range s.Steps {
		admit(EventAdmit, seq)

		for len(queue) > 0 {
			next := queue[0]
			queue = queue[1:]
			if !held[next] {
				continue
			}
			delete(held, next)

			log.Debug("Re-admitting woken sequence", "seq", next)
			admit(EventReadmit, next)
		}
	}

	tr.Held = slices.Sorted(maps.Keys(held))
	return tr
}

// WriteText writes a human-readable rendering of tr, one event per line.
func WriteText(w io.Writer, tr Trace) error {
	if _, err := fmt.Fprintf(w, "scenario %s (%s)\n", tr.Scenario, tr.Semantics); err != nil {
		return err
	}
	if tr.Description != "" {
		if _, err := fmt.Fprintf(w, "# %s\n", tr.Description); err != nil {
			return err
		}
	}

	windowed := tr.Semantics.IsWindowed()
	for _, ev := range tr.Events {
		line := fmt.Sprintf("%s seq=%d %s", ev.Kind, ev.Seq, ev.Decision)
		switch {
		case ev.Decision == dseq.Hold.String():
			line += fmt.Sprintf(" nack=%v", ev.Nack)
		case ev.Reason != "":
			line += " " + ev.Reason
		}

		line += fmt.Sprintf(" tip=%d", ev.Tip)
		if windowed {
			line += fmt.Sprintf(" mask=%#x", ev.SeenMask)
		}
		if len(ev.Woke) > 0 {
			line += fmt.Sprintf(" woke=%v", ev.Woke)
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	if len(tr.Held) > 0 {
		if _, err := fmt.Fprintf(w, "held %v\n", tr.Held); err != nil {
			return err
		}
	}
	return nil
}
