package relayer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/R3E-Network/relayer_sdk/pkg/logger"
	"github.com/R3E-Network/relayer_sdk/pkg/relayer/validate"
)

// Cancellation causes attached to a request's run context.
var (
	errCanceledByCaller = errors.New("canceled by caller")
	errDeadlineExceeded = errors.New("request deadline exceeded")
	errRequestFinished  = errors.New("request finished")
)

func causeFor(reason TerminationReason) error {
	switch reason {
	case ReasonCanceled:
		return errCanceledByCaller
	case ReasonTimeout:
		return errDeadlineExceeded
	case ReasonAborted:
		return context.Canceled
	default:
		return errRequestFinished
	}
}

func reasonFor(cause error) TerminationReason {
	switch {
	case errors.Is(cause, errCanceledByCaller):
		return ReasonCanceled
	case errors.Is(cause, errDeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonAborted
	}
}

// Request is one asynchronous relayer job: it posts the payload, polls the job until
// it reaches a terminal status and decodes the result. A Request is single use.
//
// Every method is safe for concurrent use. Cancel may be called at any time,
// including from a progress callback.
type Request[T any] struct {
	op        Operation
	url       string
	body      []byte
	opts      requestOptions
	http      Doer
	limiter   *rate.Limiter
	log       *logger.Logger
	clock     clock
	userAgent string
	id        string
	decode    resultDecoder[T]
	verify    func(T) error

	mu         sync.Mutex
	phase      phase
	reason     TerminationReason
	fetching   bool
	jobID      string
	retryCount int
	startedAt  time.Time
	cancelRun  context.CancelCauseFunc
	deadline   timer
	waitTimer  timer
	stopSignal func() bool
	progress   *progressDispatcher
}

// ID returns the correlation id sent as X-Request-ID.
func (r *Request[T]) ID() string { return r.id }

// Operation returns the job operation.
func (r *Request[T]) Operation() Operation { return r.op }

// JobID returns the job id assigned by the relayer, or "" before the first queued
// response.
func (r *Request[T]) JobID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobID
}

// RetryCount returns the number of waits scheduled so far.
func (r *Request[T]) RetryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryCount
}

// State returns a snapshot of the request's state flags.
func (r *Request[T]) State() StateSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Request[T]) Running() bool    { return r.State().Running }
func (r *Request[T]) Canceled() bool   { return r.State().Canceled }
func (r *Request[T]) Aborted() bool    { return r.State().Aborted }
func (r *Request[T]) Completed() bool  { return r.State().Completed }
func (r *Request[T]) Failed() bool     { return r.State().Failed }
func (r *Request[T]) Terminated() bool { return r.State().Terminated }
func (r *Request[T]) Fetching() bool   { return r.State().Fetching }

func (r *Request[T]) snapshotLocked() StateSnapshot {
	return snapshot(r.phase, r.reason, r.fetching)
}

// Run executes the job and blocks until it settles. It returns exactly one of a
// result or an error. ctx acts as the external cancellation signal: when it is done
// the request terminates as aborted. Run fails with a *StateError when called more
// than once or after Cancel.
func (r *Request[T]) Run(ctx context.Context) (result T, err error) {
	runCtx, err := r.start(ctx)
	if err != nil {
		return result, err
	}
	defer func() {
		err = r.finish(runCtx, err)
		if err != nil {
			var zero T
			result = zero
		}
	}()
	return r.postLoop(runCtx)
}

// Cancel terminates the request. Canceling a terminated request is a no-op.
func (r *Request[T]) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == phaseTerminated {
		return
	}
	r.terminateLocked(ReasonCanceled)
}

func (r *Request[T]) start(ctx context.Context) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.phase {
	case phaseRunning:
		return nil, r.stateErrorLocked("run called while the request is running")
	case phaseTerminated:
		return nil, r.stateErrorLocked(fmt.Sprintf("run called on a terminated request (%s)", r.reason))
	}

	r.startedAt = r.clock.Now()
	if ctx.Err() != nil {
		r.terminateLocked(ReasonAborted)
		return nil, r.cancelErrorLocked(context.Cause(ctx))
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	r.phase = phaseRunning
	r.cancelRun = cancel
	if r.opts.progress != nil {
		r.progress = newProgressDispatcher(r.opts.progress, r.log)
	}
	r.deadline = r.clock.AfterFunc(r.opts.timeout, func() { r.terminate(ReasonTimeout) })
	r.stopSignal = context.AfterFunc(ctx, func() { r.terminate(ReasonAborted) })

	r.entryLocked().WithField("timeout", r.opts.timeout).Debug("relayer request started")
	return runCtx, nil
}

// finish settles the run. A request terminated while running reports the
// cancellation regardless of what the loop returned.
func (r *Request[T]) finish(ctx context.Context, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == phaseTerminated {
		if err != nil && IsCancellation(err) {
			return err
		}
		return r.cancelErrorLocked(context.Cause(ctx))
	}

	reason := ReasonCompleted
	if err != nil {
		reason = ReasonFailed
	}
	r.terminateLocked(reason)
	if err != nil {
		r.entryLocked().WithError(err).Debug("relayer request failed")
	}
	return err
}

func (r *Request[T]) terminate(reason TerminationReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminateLocked(reason)
}

// terminateLocked moves the request to its terminal state exactly once and releases
// every timer, the signal subscription and the run context.
func (r *Request[T]) terminateLocked(reason TerminationReason) {
	if r.phase == phaseTerminated {
		r.entryLocked().WithField("reason", reason).Debug("terminate called on terminated request")
		r.assertReleasedLocked()
		return
	}

	r.phase = phaseTerminated
	r.reason = reason

	if r.waitTimer != nil {
		r.waitTimer.Stop()
		r.waitTimer = nil
	}
	if r.deadline != nil {
		r.deadline.Stop()
		r.deadline = nil
	}
	if r.stopSignal != nil {
		r.stopSignal()
		r.stopSignal = nil
	}
	if r.cancelRun != nil {
		r.cancelRun(causeFor(reason))
		r.cancelRun = nil
	}
	if r.progress != nil {
		r.progress.close()
		r.progress = nil
	}

	requestsTotal.WithLabelValues(string(r.op), string(reason)).Inc()
	if !r.startedAt.IsZero() {
		requestDuration.WithLabelValues(string(r.op)).Observe(r.clock.Now().Sub(r.startedAt).Seconds())
	}
	r.entryLocked().WithField("reason", reason).Debug("relayer request terminated")
}

func (r *Request[T]) assertReleasedLocked() {
	if r.waitTimer != nil || r.deadline != nil || r.stopSignal != nil || r.cancelRun != nil || r.progress != nil {
		r.entryLocked().Error("terminated request still holds timers or subscriptions")
	}
}

// checkContinue must be called after every suspension point.
func (r *Request[T]) checkContinue(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == phaseRunning && ctx.Err() == nil {
		return nil
	}
	if r.phase == phaseRunning {
		// The parent context is done but its AfterFunc has not run yet.
		r.terminateLocked(reasonFor(context.Cause(ctx)))
	}
	return r.cancelErrorLocked(context.Cause(ctx))
}

func (r *Request[T]) postLoop(ctx context.Context) (T, error) {
	var zero T
	for i := 0; i < maxLoopIterations; i++ {
		resp, err := r.fetch(ctx, http.MethodPost, r.url, r.body)
		if err != nil {
			return zero, err
		}

		switch resp.status {
		case http.StatusAccepted:
			body, err := r.parse(resp)
			if err != nil {
				return zero, err
			}
			queued, err := validate.AssertQueued(body, r.op.responseName())
			if err != nil {
				return zero, r.validationError(resp, err)
			}
			if err := r.setJobID(resp, queued.JobID); err != nil {
				return zero, err
			}
			if err := r.wait(ctx, resp, ProgressQueued, ""); err != nil {
				return zero, err
			}
			return r.getLoop(ctx)

		case http.StatusBadRequest, http.StatusInternalServerError:
			return zero, r.apiError(resp)

		case http.StatusTooManyRequests:
			failure, err := r.failure(resp)
			if err != nil {
				return zero, err
			}
			if err := r.wait(ctx, resp, ProgressRateLimited, failure.Label); err != nil {
				return zero, err
			}

		default:
			return zero, r.unexpectedStatus(resp)
		}
	}
	return zero, r.internalError(fmt.Sprintf("post loop exceeded %d iterations", maxLoopIterations), nil)
}

func (r *Request[T]) getLoop(ctx context.Context) (T, error) {
	var zero T
	jobID := r.JobID()
	if jobID == "" {
		return zero, r.internalError("poll started without a job id", nil)
	}
	pollURL := r.url + "/" + url.PathEscape(jobID)

	for i := 0; i < maxLoopIterations; i++ {
		resp, err := r.fetch(ctx, http.MethodGet, pollURL, nil)
		if err != nil {
			return zero, err
		}

		switch resp.status {
		case http.StatusOK:
			return r.succeeded(ctx, resp)

		case http.StatusAccepted:
			body, err := r.parse(resp)
			if err != nil {
				return zero, err
			}
			queued, err := validate.AssertQueued(body, r.op.responseName())
			if err != nil {
				return zero, r.validationError(resp, err)
			}
			if queued.JobID != jobID {
				return zero, r.validationError(resp, &validate.PropertyError{
					ObjectName:     r.op.responseName(),
					Property:       "result.job_id",
					ExpectedType:   "string",
					ExpectedValues: []string{jobID},
					ActualType:     "string",
					ActualValue:    queued.JobID,
				})
			}
			if err := r.wait(ctx, resp, ProgressQueued, ""); err != nil {
				return zero, err
			}

		case http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError:
			return zero, r.apiError(resp)

		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			failure, err := r.failure(resp)
			if err != nil {
				return zero, err
			}
			kind := ProgressUnavailable
			if resp.status == http.StatusTooManyRequests {
				kind = ProgressRateLimited
			}
			if err := r.wait(ctx, resp, kind, failure.Label); err != nil {
				return zero, err
			}

		default:
			return zero, r.unexpectedStatus(resp)
		}
	}
	return zero, r.internalError(fmt.Sprintf("poll loop exceeded %d iterations", maxLoopIterations), nil)
}

func (r *Request[T]) succeeded(ctx context.Context, resp *response) (T, error) {
	var zero T
	body, err := r.parse(resp)
	if err != nil {
		return zero, err
	}
	name := r.op.responseName()
	env, err := validate.AssertSucceeded(body, name)
	if err != nil {
		return zero, r.validationError(resp, err)
	}
	result, err := r.decode(env.Result, name)
	if err != nil {
		return zero, r.validationError(resp, err)
	}
	if r.verify != nil {
		if err := r.verify(result); err != nil {
			return zero, newVerificationError(r.errorContext(resp), err)
		}
	}
	if err := r.checkContinue(ctx); err != nil {
		return zero, err
	}
	return result, nil
}

// fetch issues one HTTP call and reads its body. fetching is set for exactly the
// duration of the call and the body read.
func (r *Request[T]) fetch(ctx context.Context, method, target string, payload []byte) (*response, error) {
	if err := r.checkContinue(ctx); err != nil {
		return nil, err
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			if cerr := r.checkContinue(ctx); cerr != nil {
				return nil, cerr
			}
			return nil, newTransportError(r.callContext(method, target), fmt.Errorf("wait for rate limiter: %w", err))
		}
		if err := r.checkContinue(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, r.internalError("build request", err)
	}
	req.Header = requestHeaders(r.id, r.userAgent, payload != nil)
	if r.opts.auth != nil {
		r.opts.auth.apply(req)
	}

	r.setFetching(true)
	r.logger(method, target).Debug("relayer call")
	resp, err := r.http.Do(req)
	if err != nil {
		r.setFetching(false)
		if cerr := r.checkContinue(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, newTransportError(r.callContext(method, target), err)
	}
	data, truncated, err := readAllWithLimit(resp.Body, maxResponseBytes)
	resp.Body.Close()
	r.setFetching(false)
	if cerr := r.checkContinue(ctx); cerr != nil {
		return nil, cerr
	}

	out := &response{method: method, url: target, status: resp.StatusCode, header: resp.Header, body: data}
	httpResponses.WithLabelValues(string(r.op), method, strconv.Itoa(resp.StatusCode)).Inc()
	if err != nil {
		return nil, newTransportError(r.errorContext(out), fmt.Errorf("read response body: %w", err))
	}
	if truncated {
		return nil, newTransportError(r.errorContext(out), fmt.Errorf("response body exceeds %d bytes", maxResponseBytes))
	}
	r.logger(method, target).WithField("status", resp.StatusCode).Debug("relayer response")
	return out, nil
}

// wait schedules the Retry-After wait for resp. It is the only place retryCount
// increments and the only place the wait timer is set.
func (r *Request[T]) wait(ctx context.Context, resp *response, kind ProgressKind, label string) error {
	d, raw, ok := parseRetryAfter(resp.header)
	if !ok {
		if r.opts.throwIfNoRetryAfter {
			actualType := "string"
			if raw == "" {
				actualType = "undefined"
			}
			return r.validationError(resp, &validate.PropertyError{
				ObjectName:   "headers",
				Property:     "Retry-After",
				ExpectedType: "integer seconds",
				ActualType:   actualType,
				ActualValue:  raw,
			})
		}
		d = DefaultRetryAfter
	}
	d = floorRetryAfter(d)

	r.mu.Lock()
	if r.phase != phaseRunning {
		r.mu.Unlock()
		return r.checkContinue(ctx)
	}
	if r.waitTimer != nil {
		r.mu.Unlock()
		return r.internalError("wait scheduled while another wait is pending", nil)
	}
	r.retryCount++
	ev := ProgressEvent{
		Kind:       kind,
		Operation:  r.op,
		RequestID:  r.id,
		JobID:      r.jobID,
		Method:     resp.method,
		URL:        resp.url,
		Status:     resp.status,
		Label:      label,
		RetryCount: r.retryCount,
		RetryAfter: d,
		Elapsed:    r.clock.Now().Sub(r.startedAt),
	}
	if r.progress != nil {
		r.progress.dispatch(ev)
	}
	t := r.clock.NewTimer(d)
	r.waitTimer = t
	r.entryLocked().WithFields(logrus.Fields{
		"status":      resp.status,
		"label":       label,
		"retry_after": d,
	}).Debugf("relayer request %s, waiting", kind)
	r.mu.Unlock()

	retriesTotal.WithLabelValues(string(r.op), string(kind)).Inc()

	select {
	case <-t.C():
	case <-ctx.Done():
	}

	r.mu.Lock()
	t.Stop()
	if r.waitTimer == t {
		r.waitTimer = nil
	}
	r.mu.Unlock()
	return r.checkContinue(ctx)
}

func (r *Request[T]) setJobID(resp *response, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobID != "" {
		return &InternalError{
			ErrorContext: r.errorContextLocked(resp),
			Message:      fmt.Sprintf("job id already set to %q, got %q", r.jobID, jobID),
		}
	}
	r.jobID = jobID
	return nil
}

func (r *Request[T]) setFetching(v bool) {
	r.mu.Lock()
	r.fetching = v
	r.mu.Unlock()
}

// parse decodes resp's body as JSON. A body that is not JSON at all means no
// server-authored structure was obtained.
func (r *Request[T]) parse(resp *response) (gjson.Result, error) {
	body, err := validate.Parse(resp.body)
	if err != nil {
		return gjson.Result{}, newTransportError(r.errorContext(resp), err)
	}
	return body, nil
}

func (r *Request[T]) failure(resp *response) (validate.Failure, error) {
	body, err := r.parse(resp)
	if err != nil {
		return validate.Failure{}, err
	}
	failure, err := validate.AssertFailure(body, resp.status, r.op.responseName())
	if err != nil {
		return validate.Failure{}, r.validationError(resp, err)
	}
	return failure, nil
}

func (r *Request[T]) apiError(resp *response) error {
	failure, err := r.failure(resp)
	if err != nil {
		return err
	}
	return newAPIError(r.errorContext(resp), failure)
}

func newAPIError(ec ErrorContext, failure validate.Failure) *APIError {
	if ec.RequestID == "" {
		ec.RequestID = failure.RequestID
	}
	if ec.DocsURL == "" {
		ec.DocsURL = validate.DocsFor(failure.Label)
	}
	return &APIError{
		ErrorContext: ec,
		Label:        failure.Label,
		Message:      failure.Message,
		Details:      failure.Details,
	}
}

func (r *Request[T]) unexpectedStatus(resp *response) error {
	return &UnexpectedStatusError{ErrorContext: r.errorContext(resp), Body: bodySnippet(resp.body)}
}

func (r *Request[T]) validationError(resp *response, err error) error {
	return newValidationError(r.errorContext(resp), err)
}

func (r *Request[T]) internalError(msg string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entryLocked().WithError(cause).Error("relayer request invariant violated: " + msg)
	return newInternalError(r.errorContextLocked(nil), msg, cause)
}

func (r *Request[T]) stateErrorLocked(msg string) error {
	return &StateError{ErrorContext: r.errorContextLocked(nil), Message: msg}
}

func (r *Request[T]) cancelErrorLocked(cause error) error {
	reason := r.reason
	if reason == ReasonNone || reason == ReasonCompleted || reason == ReasonFailed {
		reason = reasonFor(cause)
	}
	if cause == nil {
		cause = causeFor(reason)
	}
	return newCancelError(r.errorContextLocked(nil), reason, cause)
}

func (r *Request[T]) errorContext(resp *response) ErrorContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorContextLocked(resp)
}

func (r *Request[T]) callContext(method, target string) ErrorContext {
	return r.errorContext(&response{method: method, url: target})
}

func (r *Request[T]) errorContextLocked(resp *response) ErrorContext {
	ec := ErrorContext{
		Operation:  r.op,
		URL:        r.url,
		JobID:      r.jobID,
		RequestID:  r.id,
		RetryCount: r.retryCount,
		State:      r.snapshotLocked(),
	}
	if !r.startedAt.IsZero() {
		ec.Elapsed = r.clock.Now().Sub(r.startedAt)
	}
	if resp != nil {
		ec.Method = resp.method
		ec.URL = resp.url
		ec.Status = resp.status
	}
	return ec
}

func (r *Request[T]) entryLocked() *logrus.Entry {
	return r.log.WithFields(logrus.Fields{
		"request_id":  r.id,
		"operation":   r.op,
		"job_id":      r.jobID,
		"retry_count": r.retryCount,
		"state":       r.snapshotLocked().String(),
	})
}

func (r *Request[T]) logger(method, target string) *logrus.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entryLocked().WithFields(logrus.Fields{"method": method, "url": target})
}

func newRequestID() string {
	return uuid.NewString()
}
