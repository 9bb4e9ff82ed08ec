// Package dnack carries retransmission requests (NACK lists)
// from a receiving stream back to the sending peer,
// over a unidirectional QUIC stream.
//
// One [Requester] serves every ordered stream on a connection.
// Each request becomes one or more frames:
//
//	uvarint stream ID
//	uvarint base sequence number
//	uvarint bit count (1 to MaxFrameSpan)
//	bitset of offsets from base, in the dnackwire encoding
//
// The sending peer decodes frames with [*Reader.ReadFrame]
// and decides for itself what to resend.
package dnack
