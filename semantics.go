package dseq

import (
	"fmt"
)

// DeliverySemantics is the delivery contract of a stream.
// It is fixed when the stream is opened
// and never changes for the life of the stream.
//
// The numeric value is the identifier used on the wire
// during stream setup; see [ParseDeliverySemantics].
type DeliverySemantics uint8

const (
	// Zero is deliberately invalid,
	// so that an unset value is never mistaken for a real mode.
	invalidSemantics DeliverySemantics = iota

	// ReliableOrdered delivers every message exactly once,
	// in strictly increasing sequence order.
	// Messages ahead of the tip are held until the gap closes.
	ReliableOrdered

	// ReliableUnordered delivers messages in arrival order,
	// suppressing duplicates inside a 64-message window.
	// Messages beyond the window are held.
	ReliableUnordered

	// UnreliableOrdered delivers only messages at or after the tip;
	// gaps are skipped and never recovered.
	UnreliableOrdered

	// UnreliableUnordered delivers messages in arrival order,
	// suppressing duplicates inside a 64-message window.
	// It never holds a message; a sequence beyond the window
	// resynchronizes the window instead.
	UnreliableUnordered

	// LastMessageReliable is "latest wins":
	// a newer message supersedes every older one,
	// and older messages are rejected.
	// It does not buffer or retry.
	LastMessageReliable

	maxSemantics = LastMessageReliable
)

// UnknownSemanticsError is returned from [ParseDeliverySemantics]
// and from text unmarshalling when the value does not name
// one of the five delivery semantics.
type UnknownSemanticsError struct {
	Byte byte
	Name string
}

func (e UnknownSemanticsError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unknown delivery semantics %q", e.Name)
	}
	return fmt.Sprintf("unknown delivery semantics byte 0x%x", e.Byte)
}

// ParseDeliverySemantics converts a wire identifier into a DeliverySemantics,
// returning an [UnknownSemanticsError] if b is not recognized.
func ParseDeliverySemantics(b byte) (DeliverySemantics, error) {
	s := DeliverySemantics(b)
	if !s.Valid() {
		return invalidSemantics, UnknownSemanticsError{Byte: b}
	}
	return s, nil
}

// Valid reports whether s is one of the five defined values.
func (s DeliverySemantics) Valid() bool {
	return s > invalidSemantics && s <= maxSemantics
}

// Byte returns the wire identifier for s.
func (s DeliverySemantics) Byte() byte {
	return byte(s)
}

// IsReliable reports whether streams with these semantics
// hold messages and request retransmission of gaps.
func (s DeliverySemantics) IsReliable() bool {
	return s == ReliableOrdered || s == ReliableUnordered
}

// IsWindowed reports whether streams with these semantics
// track already-seen sequence numbers in a fixed window.
func (s DeliverySemantics) IsWindowed() bool {
	return s == ReliableUnordered || s == UnreliableUnordered
}

var semanticsNames = [...]string{
	invalidSemantics:    "invalid",
	ReliableOrdered:     "reliable-ordered",
	ReliableUnordered:   "reliable-unordered",
	UnreliableOrdered:   "unreliable-ordered",
	UnreliableUnordered: "unreliable-unordered",
	LastMessageReliable: "last-message-reliable",
}

func (s DeliverySemantics) String() string {
	if !s.Valid() {
		return fmt.Sprintf("DeliverySemantics(%d)", uint8(s))
	}
	return semanticsNames[s]
}

// MarshalText implements [encoding.TextMarshaler].
func (s DeliverySemantics) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, UnknownSemanticsError{Byte: byte(s)}
	}
	return []byte(semanticsNames[s]), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
// It accepts the names produced by [DeliverySemantics.String].
func (s *DeliverySemantics) UnmarshalText(text []byte) error {
	name := string(text)
	for i := ReliableOrdered; i <= maxSemantics; i++ {
		if semanticsNames[i] == name {
			*s = i
			return nil
		}
	}
	return UnknownSemanticsError{Name: name}
}
