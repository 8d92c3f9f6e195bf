package resource

import (
	"context"
	"errors"
	"sync"
)

// ErrStreamClosed is returned when submitting to a closed stream.
var ErrStreamClosed = errors.New("stream closed")

// defaultStreamDepth is the submission queue depth before Submit applies
// backpressure.
const defaultStreamDepth = 64

// Stream is an ordered asynchronous work queue modeling an accelerator
// stream: tasks submitted in sequence execute in sequence, Submit returns
// after enqueueing, and Sync waits for everything submitted so far.
//
// The first task error becomes sticky: later tasks are skipped and every
// subsequent Sync reports it, mirroring device-side fault semantics. A stream
// with a sticky error cannot be reused.
type Stream struct {
	tasks chan streamTask
	done  chan struct{}

	// mu guards closed and is held across channel sends, so a racing Close
	// surfaces as ErrStreamClosed rather than a send on a closed channel.
	// The worker loop stays off mu entirely; it records errors under errMu.
	mu     sync.Mutex
	closed bool

	errMu sync.Mutex
	err   error
}

type streamTask struct {
	run    func() error
	marker chan struct{} // non-nil for sync markers
}

func newStream() *Stream {
	s := &Stream{
		tasks: make(chan streamTask, defaultStreamDepth),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Stream) loop() {
	defer close(s.done)
	for t := range s.tasks {
		if t.marker != nil {
			close(t.marker)
			continue
		}
		if s.Err() != nil {
			continue
		}
		if err := t.run(); err != nil {
			s.errMu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.errMu.Unlock()
		}
	}
}

// Submit enqueues a task. It blocks only when the queue is full and returns
// once the task is enqueued, not when it has run.
func (s *Stream) Submit(task func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	s.tasks <- streamTask{run: task}
	return nil
}

// Sync blocks until every task submitted before the call has completed, or
// ctx is done. It returns the stream's sticky error, if any.
func (s *Stream) Sync(ctx context.Context) error {
	marker := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.Err()
	}
	s.tasks <- streamTask{marker: marker}
	s.mu.Unlock()

	select {
	case <-marker:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the sticky error recorded by the first failed task.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close drains the stream and stops its worker. It is idempotent and returns
// the sticky error, if any.
func (s *Stream) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.tasks)
	}
	s.mu.Unlock()
	<-s.done
	return s.Err()
}
