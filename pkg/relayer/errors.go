package relayer

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/R3E-Network/relayer_sdk/pkg/relayer/validate"
)

// ErrorKind classifies every error the SDK returns.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindValidation: a response body did not match the expected envelope.
	KindValidation
	// KindAPI: the relayer reported a failure with a recognized label.
	KindAPI
	// KindUnexpectedStatus: the relayer answered with a status this client has no mapping for.
	KindUnexpectedStatus
	// KindTransport: no server-authored structure was obtained (network failure, non-JSON body).
	KindTransport
	// KindCanceled: the caller canceled the request.
	KindCanceled
	// KindAborted: the caller's context was done.
	KindAborted
	// KindTimeout: the request's global deadline expired.
	KindTimeout
	// KindInternal: an invariant was violated or the retry ceiling was hit.
	KindInternal
	// KindState: a public method was called out of order.
	KindState
	// KindVerification: result signatures did not satisfy the signer threshold.
	KindVerification
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAPI:
		return "api"
	case KindUnexpectedStatus:
		return "unexpected_status"
	case KindTransport:
		return "transport"
	case KindCanceled:
		return "canceled"
	case KindAborted:
		return "aborted"
	case KindTimeout:
		return "timeout"
	case KindInternal:
		return "internal"
	case KindState:
		return "state"
	case KindVerification:
		return "verification"
	default:
		return "unknown"
	}
}

type kinded interface {
	Kind() ErrorKind
}

type documented interface {
	Docs() string
}

// KindOf returns the kind of the outermost SDK error in err's chain.
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// IsCancellation reports whether err means the request was canceled, aborted or timed
// out, as opposed to being rejected.
func IsCancellation(err error) bool {
	switch KindOf(err) {
	case KindCanceled, KindAborted, KindTimeout:
		return true
	}
	return false
}

// ErrorContext is the protocol context attached to every SDK error.
type ErrorContext struct {
	Operation  Operation
	Method     string
	URL        string
	Status     int
	JobID      string
	RequestID  string
	RetryCount int
	Elapsed    time.Duration
	State      StateSnapshot
	DocsURL    string
}

// Docs returns the documentation link for the error, if any.
func (c *ErrorContext) Docs() string {
	return c.DocsURL
}

func (c *ErrorContext) prefix() string {
	var b strings.Builder
	b.WriteString("relayer")
	if c.Operation != "" {
		b.WriteString(" ")
		b.WriteString(string(c.Operation))
	}
	if c.Method != "" {
		b.WriteString(" ")
		b.WriteString(c.Method)
	}
	if c.URL != "" {
		b.WriteString(" ")
		b.WriteString(c.URL)
	}
	if c.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", c.Status)
	}
	if c.JobID != "" {
		fmt.Fprintf(&b, " job %s", c.JobID)
	}
	return b.String()
}

func (c *ErrorContext) format(msg string, cause error) string {
	if cause == nil {
		return c.prefix() + ": " + msg
	}
	return c.prefix() + ": " + msg + ": " + cause.Error()
}

// inheritDocs copies the documentation link from the nearest cause that has one.
func (c *ErrorContext) inheritDocs(cause error) {
	if c.DocsURL != "" || cause == nil {
		return
	}
	for err := cause; err != nil; err = errors.Unwrap(err) {
		if d, ok := err.(documented); ok && d.Docs() != "" {
			c.DocsURL = d.Docs()
			return
		}
	}
}

func newValidationError(ec ErrorContext, err error) *ValidationError {
	ec.inheritDocs(err)
	return &ValidationError{ErrorContext: ec, Err: err}
}

// ValidationError reports a response body that does not match its envelope. Err is
// usually a *validate.PropertyError.
type ValidationError struct {
	ErrorContext
	Err error
}

func (e *ValidationError) Kind() ErrorKind { return KindValidation }
func (e *ValidationError) Unwrap() error   { return e.Err }
func (e *ValidationError) Error() string {
	return e.format("invalid response body", e.Err)
}

// Property returns the offending property error, if the cause is one.
func (e *ValidationError) Property() (*validate.PropertyError, bool) {
	var perr *validate.PropertyError
	if errors.As(e.Err, &perr) {
		return perr, true
	}
	return nil, false
}

// APIError reports a failure the relayer described with a recognized label.
type APIError struct {
	ErrorContext
	Label   string
	Message string
	Details []validate.Detail
}

func (e *APIError) Kind() ErrorKind { return KindAPI }
func (e *APIError) Error() string {
	msg := "relayer rejected request: " + e.Label
	if e.Message != "" {
		msg += ": " + e.Message
	}
	for _, d := range e.Details {
		msg += fmt.Sprintf(" [%s: %s]", d.Field, d.Issue)
	}
	return e.format(msg, nil)
}

// RateLimited reports whether the failure asked the caller to slow down.
func (e *APIError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// UnexpectedStatusError reports a status code outside the protocol for the call site.
type UnexpectedStatusError struct {
	ErrorContext
	// Body is a truncated copy of the response body.
	Body string
}

func (e *UnexpectedStatusError) Kind() ErrorKind { return KindUnexpectedStatus }
func (e *UnexpectedStatusError) Error() string {
	msg := "unexpected status " + http.StatusText(e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return e.format(msg, nil)
}

func newTransportError(ec ErrorContext, err error) *TransportError {
	ec.inheritDocs(err)
	return &TransportError{ErrorContext: ec, Err: err}
}

// TransportError reports that no server-authored structure was obtained.
type TransportError struct {
	ErrorContext
	Err error
}

func (e *TransportError) Kind() ErrorKind { return KindTransport }
func (e *TransportError) Unwrap() error   { return e.Err }
func (e *TransportError) Error() string {
	return e.format("transport failure", e.Err)
}

func newCancelError(ec ErrorContext, reason TerminationReason, err error) *CancelError {
	ec.inheritDocs(err)
	return &CancelError{ErrorContext: ec, Reason: reason, Err: err}
}

// CancelError reports that the request stopped before reaching a result.
type CancelError struct {
	ErrorContext
	Reason TerminationReason
	Err    error
}

func (e *CancelError) Kind() ErrorKind {
	switch e.Reason {
	case ReasonTimeout:
		return KindTimeout
	case ReasonCanceled:
		return KindCanceled
	default:
		return KindAborted
	}
}
func (e *CancelError) Unwrap() error { return e.Err }
func (e *CancelError) Error() string {
	return e.format("request "+string(e.Reason), e.Err)
}

func newInternalError(ec ErrorContext, msg string, err error) *InternalError {
	ec.inheritDocs(err)
	return &InternalError{ErrorContext: ec, Message: msg, Err: err}
}

// InternalError reports a violated invariant inside the SDK.
type InternalError struct {
	ErrorContext
	Message string
	Err     error
}

func (e *InternalError) Kind() ErrorKind { return KindInternal }
func (e *InternalError) Unwrap() error   { return e.Err }
func (e *InternalError) Error() string {
	return e.format("internal error: "+e.Message, e.Err)
}

// StateError reports a public method called in the wrong state.
type StateError struct {
	ErrorContext
	Message string
}

func (e *StateError) Kind() ErrorKind { return KindState }
func (e *StateError) Error() string {
	return e.format(e.Message, nil)
}

func newVerificationError(ec ErrorContext, err error) *VerificationError {
	ec.inheritDocs(err)
	return &VerificationError{ErrorContext: ec, Err: err}
}

// VerificationError reports result signatures that failed signer verification.
type VerificationError struct {
	ErrorContext
	Err error
}

func (e *VerificationError) Kind() ErrorKind { return KindVerification }
func (e *VerificationError) Unwrap() error   { return e.Err }
func (e *VerificationError) Error() string {
	return e.format("signature verification failed", e.Err)
}
