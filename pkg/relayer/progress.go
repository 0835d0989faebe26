package relayer

import (
	"time"

	"github.com/R3E-Network/relayer_sdk/pkg/logger"
)

// ProgressKind tells which transition produced a ProgressEvent.
type ProgressKind string

const (
	// ProgressQueued: the relayer accepted or is still processing the job.
	ProgressQueued ProgressKind = "queued"
	// ProgressRateLimited: the relayer asked the client to back off.
	ProgressRateLimited ProgressKind = "rate_limited"
	// ProgressUnavailable: the relayer is temporarily unavailable while polling.
	ProgressUnavailable ProgressKind = "unavailable"
)

// ProgressEvent describes a non-terminal transition of a request.
type ProgressEvent struct {
	Kind       ProgressKind
	Operation  Operation
	RequestID  string
	JobID      string
	Method     string
	URL        string
	Status     int
	Label      string
	RetryCount int
	RetryAfter time.Duration
	Elapsed    time.Duration
}

// ProgressFunc receives progress events. It runs on its own goroutine, never on the
// goroutine driving the request, so it may call Cancel.
type ProgressFunc func(ProgressEvent)

const progressBuffer = 2*maxLoopIterations + 2

// progressDispatcher delivers events in order on a dedicated goroutine.
type progressDispatcher struct {
	fn   ProgressFunc
	log  *logger.Logger
	ch   chan ProgressEvent
	done chan struct{}
}

func newProgressDispatcher(fn ProgressFunc, log *logger.Logger) *progressDispatcher {
	d := &progressDispatcher{
		fn:   fn,
		log:  log,
		ch:   make(chan ProgressEvent, progressBuffer),
		done: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *progressDispatcher) loop() {
	defer close(d.done)
	for ev := range d.ch {
		d.call(ev)
	}
}

func (d *progressDispatcher) call(ev ProgressEvent) {
	defer func() {
		if p := recover(); p != nil {
			d.log.WithField("request_id", ev.RequestID).Errorf("progress callback panicked: %v", p)
		}
	}()
	d.fn(ev)
}

// dispatch never blocks the caller.
func (d *progressDispatcher) dispatch(ev ProgressEvent) {
	select {
	case d.ch <- ev:
	default:
		d.log.WithField("request_id", ev.RequestID).Warn("progress queue full, dropping event")
	}
}

// close stops accepting events; queued events are still delivered.
func (d *progressDispatcher) close() {
	close(d.ch)
}
