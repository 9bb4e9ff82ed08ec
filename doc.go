// Package dseq contains the per-stream ordering and admission engine
// for sequenced messages arriving on a logical stream of a mesh connection.
//
// An [Engine] is created once per stream with one of the five
// [DeliverySemantics] values, and the receive loop that owns the stream
// calls [*Engine.Admit] once for every inbound message.
// The returned [AdmitResult] tells the caller to forward the payload,
// to hold the message until a gap closes, or to discard it.
//
// The engine performs no locking and never blocks.
// When it decides a message must be held,
// it stores the caller's [Waker] and invokes it later,
// from within a subsequent Admit call that may have closed the gap.
// Being woken only means the held message should be admitted again;
// the second attempt may well be held again.
//
// Payload storage, the wire codec, and the retransmission sender
// are all outside this package.
// See package dstream for a receive loop built on the engine,
// and package dnack for sending NACK lists to a peer.
package dseq
