package relayer

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/R3E-Network/relayer_sdk/pkg/relayer/validate"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("x"), KindUnknown},
		{"validation", &ValidationError{}, KindValidation},
		{"api", &APIError{}, KindAPI},
		{"unexpected", &UnexpectedStatusError{}, KindUnexpectedStatus},
		{"transport", &TransportError{}, KindTransport},
		{"canceled", &CancelError{Reason: ReasonCanceled}, KindCanceled},
		{"aborted", &CancelError{Reason: ReasonAborted}, KindAborted},
		{"timeout", &CancelError{Reason: ReasonTimeout}, KindTimeout},
		{"internal", &InternalError{}, KindInternal},
		{"state", &StateError{}, KindState},
		{"verification", &VerificationError{}, KindVerification},
		{"wrapped", fmt.Errorf("submit: %w", &APIError{}), KindAPI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, IsCancellation(&CancelError{Reason: ReasonTimeout}))
	assert.True(t, IsCancellation(&CancelError{Reason: ReasonCanceled}))
	assert.False(t, IsCancellation(&APIError{}))
	assert.False(t, IsCancellation(nil))
}

func TestValidationError_UnwrapsProperty(t *testing.T) {
	perr := &validate.PropertyError{ObjectName: "InputProofResponse", Property: "result.job_id", ExpectedType: "string", ActualType: "undefined"}
	err := &ValidationError{
		ErrorContext: ErrorContext{Operation: OpInputProof, Method: http.MethodPost, URL: "http://relayer/v2/input-proof", Status: 202},
		Err:          perr,
	}

	var got *validate.PropertyError
	assert.True(t, errors.As(err, &got))
	assert.Same(t, perr, got)
	msg := err.Error()
	for _, want := range []string{"input-proof", "POST", "status 202", "result.job_id"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want it to contain %q", msg, want)
		}
	}
}

func TestInheritDocs(t *testing.T) {
	inner := &APIError{ErrorContext: ErrorContext{DocsURL: "https://docs.example.org/errors#rate_limited"}}
	outer := ErrorContext{}
	outer.inheritDocs(fmt.Errorf("wrapped: %w", inner))
	assert.Equal(t, "https://docs.example.org/errors#rate_limited", outer.Docs())

	kept := ErrorContext{DocsURL: "https://docs.example.org/own"}
	kept.inheritDocs(inner)
	assert.Equal(t, "https://docs.example.org/own", kept.Docs())
}

func TestWrappingConstructorsInheritDocs(t *testing.T) {
	cause := fmt.Errorf("decode: %w", &validate.PropertyError{ObjectName: "R", DocsURL: "https://docs.example.org/r"})
	ec := ErrorContext{Operation: OpPublicDecrypt}

	for name, err := range map[string]error{
		"validation":   newValidationError(ec, cause),
		"transport":    newTransportError(ec, cause),
		"internal":     newInternalError(ec, "boom", cause),
		"verification": newVerificationError(ec, cause),
		"cancel":       newCancelError(ec, ReasonCanceled, cause),
	} {
		d, ok := err.(documented)
		if !ok {
			t.Fatalf("%s error does not expose Docs()", name)
		}
		if got := d.Docs(); got != "https://docs.example.org/r" {
			t.Errorf("%s Docs() = %q, want %q", name, got, "https://docs.example.org/r")
		}
	}

	own := ErrorContext{DocsURL: "https://docs.example.org/own"}
	assert.Equal(t, "https://docs.example.org/own", newTransportError(own, cause).Docs())
}

func TestNewAPIError_DocsFromLabel(t *testing.T) {
	err := newAPIError(ErrorContext{}, validate.Failure{Status: 429, Label: validate.LabelRateLimited, RequestID: "srv-1"})
	assert.Equal(t, validate.DocsFor(validate.LabelRateLimited), err.Docs())
	assert.Equal(t, "srv-1", err.RequestID)
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{
		ErrorContext: ErrorContext{Operation: OpUserDecrypt, Status: http.StatusTooManyRequests, JobID: "j1"},
		Label:        "rate_limited",
		Message:      "slow down",
		Details:      []validate.Detail{{Field: "publicKey", Issue: "too short"}},
	}
	want := "relayer user-decrypt (status 429) job j1: relayer rejected request: rate_limited: slow down [publicKey: too short]"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	assert.True(t, err.RateLimited())
}

func TestStateSnapshot(t *testing.T) {
	s := snapshot(phaseTerminated, ReasonCanceled, false)
	assert.True(t, s.Canceled)
	assert.True(t, s.Aborted)
	assert.False(t, s.Completed)
	assert.Equal(t, "terminated(canceled)", s.String())

	s = snapshot(phaseTerminated, ReasonTimeout, false)
	assert.False(t, s.Canceled)
	assert.True(t, s.Aborted)

	s = snapshot(phaseRunning, ReasonNone, true)
	assert.Equal(t, "running(fetching)", s.String())
}
