// Package dquic narrows quic-go down to the handful of
// connection and stream methods used for retransmission requests,
// so that tests can substitute in-memory implementations
// (see package dquictest).
package dquic
