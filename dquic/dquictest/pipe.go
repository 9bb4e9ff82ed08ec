// Package dquictest contains in-memory implementations
// of the interfaces in package dquic.
package dquictest

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gordian-engine/dseq/dquic"
)

// NewPipe returns the two ends of a synchronous in-memory stream.
// Each Write blocks until the data is fully read from the other end.
func NewPipe() (*PipeSendStream, *PipeReceiveStream) {
	pr, pw := io.Pipe()
	return &PipeSendStream{pw: pw}, &PipeReceiveStream{pr: pr}
}

// PipeSendStream is the write end of [NewPipe].
type PipeSendStream struct {
	pw *io.PipeWriter

	mu            sync.Mutex
	writeDeadline time.Time
}

var _ dquic.SendStream = (*PipeSendStream)(nil)

func (s *PipeSendStream) Write(p []byte) (int, error) {
	return s.pw.Write(p)
}

func (s *PipeSendStream) CancelWrite(code dquic.StreamErrorCode) {
	s.pw.CloseWithError(StreamCanceledError{Code: code})
}

func (s *PipeSendStream) Close() error {
	return s.pw.Close()
}

// SetWriteDeadline records t but does not enforce it.
func (s *PipeSendStream) SetWriteDeadline(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeDeadline = t
	return nil
}

// WriteDeadline returns the most recently set write deadline.
func (s *PipeSendStream) WriteDeadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeDeadline
}

// PipeReceiveStream is the read end of [NewPipe].
type PipeReceiveStream struct {
	pr *io.PipeReader

	mu           sync.Mutex
	readDeadline time.Time
}

var _ dquic.ReceiveStream = (*PipeReceiveStream)(nil)

func (s *PipeReceiveStream) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

func (s *PipeReceiveStream) CancelRead(code dquic.StreamErrorCode) {
	s.pr.CloseWithError(StreamCanceledError{Code: code})
}

// SetReadDeadline records t but does not enforce it.
func (s *PipeReceiveStream) SetReadDeadline(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readDeadline = t
	return nil
}

// ReadDeadline returns the most recently set read deadline.
func (s *PipeReceiveStream) ReadDeadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readDeadline
}

// StreamCanceledError is returned from the opposite end of a pipe
// after CancelRead or CancelWrite.
type StreamCanceledError struct {
	Code dquic.StreamErrorCode
}

func (e StreamCanceledError) Error() string {
	return fmt.Sprintf("stream canceled with code 0x%x", uint64(e.Code))
}

// IsCanceled reports whether err came from a canceled pipe.
func IsCanceled(err error) bool {
	var sce StreamCanceledError
	return errors.As(err, &sce)
}
