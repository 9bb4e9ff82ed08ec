// Package dstream runs the receive side of ordered streams.
//
// A [Receiver] owns one [dseq.Engine] and a single goroutine,
// which is the only caller of Admit for that engine.
// Held messages are parked until the engine wakes them,
// then admitted again.
//
// A [Demux] routes the messages of one connection
// to a Receiver per stream ID,
// so that separate streams make progress independently.
package dstream
