package dstream

import (
	"context"
	"fmt"

	"github.com/gordian-engine/dseq"
)

// Inbound is a decoded message header and its payload.
type Inbound struct {
	Peer     dseq.PeerID
	StreamID uint64
	Seq      uint64

	// Opaque to this package; passed through on delivery.
	Payload []byte
}

// NackRequester sends retransmission requests to a peer.
// [*dnack.Requester] satisfies this interface.
type NackRequester interface {
	RequestRetransmit(
		ctx context.Context,
		peer dseq.PeerID,
		streamID uint64,
		seqs []uint64,
	) error
}

// Rejection is published when the engine rejects a message.
type Rejection struct {
	Inbound Inbound
	Err     dseq.OrderingError
}

// Stats is a snapshot of a Receiver's counters.
type Stats struct {
	// Messages forwarded to the deliveries channel.
	Accepted uint64

	// Hold results, including repeated holds after a wake.
	Held uint64

	// Stale or duplicate messages.
	Rejected uint64

	// Held messages discarded because the held limit was reached.
	Dropped uint64
}

// StreamAlreadyOpenError is returned from [*Demux.OpenStream]
// when the stream ID is already registered.
type StreamAlreadyOpenError struct {
	StreamID uint64
}

func (e StreamAlreadyOpenError) Error() string {
	return fmt.Sprintf("stream %d is already open", e.StreamID)
}

// StreamNotOpenError is returned from [*Demux.CloseStream]
// when the stream ID is not registered.
type StreamNotOpenError struct {
	StreamID uint64
}

func (e StreamNotOpenError) Error() string {
	return fmt.Sprintf("stream %d is not open", e.StreamID)
}
