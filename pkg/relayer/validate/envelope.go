package validate

import (
	"net/http"
	"sort"

	"github.com/tidwall/gjson"
)

// Envelope status discriminants.
const (
	StatusQueued    = "queued"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Failure labels. Each label belongs to exactly one HTTP status.
const (
	LabelMalformedJSON          = "malformed_json"
	LabelRequestError           = "request_error"
	LabelNotReadyForDecryption  = "not_ready_for_decryption"
	LabelMissingFields          = "missing_fields"
	LabelValidationFailed       = "validation_failed"
	LabelNotFound               = "not_found"
	LabelRateLimited            = "rate_limited"
	LabelProtocolOverload       = "protocol_overload"
	LabelInternalServerError    = "internal_server_error"
	LabelProtocolPaused         = "protocol_paused"
	LabelGatewayNotReachable    = "gateway_not_reachable"
	LabelInsufficientBalance    = "insufficient_balance"
	LabelReadinessCheckTimedOut = "readiness_check_timed_out"
	LabelResponseTimedOut       = "response_timed_out"
)

var labelsByStatus = map[int][]string{
	http.StatusBadRequest:          {LabelMalformedJSON, LabelRequestError, LabelNotReadyForDecryption, LabelMissingFields, LabelValidationFailed},
	http.StatusNotFound:            {LabelNotFound},
	http.StatusTooManyRequests:     {LabelRateLimited, LabelProtocolOverload},
	http.StatusInternalServerError: {LabelInternalServerError},
	http.StatusServiceUnavailable:  {LabelProtocolPaused, LabelGatewayNotReachable, LabelInsufficientBalance},
	http.StatusGatewayTimeout:      {LabelReadinessCheckTimedOut, LabelResponseTimedOut},
}

// labels that must carry field-level details.
var detailedLabels = map[string]bool{
	LabelMissingFields:    true,
	LabelValidationFailed: true,
}

// LabelsFor returns the closed label set for an HTTP status, or nil when the status
// carries no failure envelope.
func LabelsFor(status int) []string {
	labels, ok := labelsByStatus[status]
	if !ok {
		return nil
	}
	return append([]string(nil), labels...)
}

// StatusForLabel returns the HTTP status a label belongs to.
func StatusForLabel(label string) (int, bool) {
	for status, labels := range labelsByStatus {
		for _, l := range labels {
			if l == label {
				return status, true
			}
		}
	}
	return 0, false
}

// FailureStatuses lists every status that has a failure envelope, ascending.
func FailureStatuses() []int {
	out := make([]int, 0, len(labelsByStatus))
	for s := range labelsByStatus {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// Queued is a narrowed "queued" envelope.
type Queued struct {
	RequestID string
	JobID     string
}

// Succeeded is a narrowed "succeeded" envelope. Result still needs the
// operation-specific assertion.
type Succeeded struct {
	RequestID string
	Result    gjson.Result
}

// Detail is one field-level validation issue reported by the relayer.
type Detail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Failure is a narrowed failure envelope.
type Failure struct {
	Status    int
	RequestID string
	Label     string
	Message   string
	Details   []Detail
}

// AssertQueued narrows body to a queued envelope:
// {"status":"queued","requestId"?:string,"result":{"job_id":string}}.
func AssertQueued(body gjson.Result, name string) (Queued, error) {
	if err := AssertObject(body, name, ""); err != nil {
		return Queued{}, err
	}
	if err := AssertStringEnum(body.Get("status"), name, "status", []string{StatusQueued}); err != nil {
		return Queued{}, err
	}
	requestID := body.Get("requestId")
	if err := AssertOptionalString(requestID, name, "requestId"); err != nil {
		return Queued{}, err
	}
	result := body.Get("result")
	if err := AssertObject(result, name, "result"); err != nil {
		return Queued{}, err
	}
	jobID := result.Get("job_id")
	if err := AssertNonEmptyString(jobID, name, "result.job_id"); err != nil {
		return Queued{}, err
	}
	return Queued{RequestID: requestID.Str, JobID: jobID.Str}, nil
}

// AssertSucceeded narrows body to a succeeded envelope:
// {"status":"succeeded","requestId"?:string,"result":object}.
func AssertSucceeded(body gjson.Result, name string) (Succeeded, error) {
	if err := AssertObject(body, name, ""); err != nil {
		return Succeeded{}, err
	}
	if err := AssertStringEnum(body.Get("status"), name, "status", []string{StatusSucceeded}); err != nil {
		return Succeeded{}, err
	}
	requestID := body.Get("requestId")
	if err := AssertOptionalString(requestID, name, "requestId"); err != nil {
		return Succeeded{}, err
	}
	result := body.Get("result")
	if err := AssertObject(result, name, "result"); err != nil {
		return Succeeded{}, err
	}
	return Succeeded{RequestID: requestID.Str, Result: result}, nil
}

// AssertFailure narrows body to the failure envelope for status. The label must belong
// to the status' closed label set; an unknown label is a validation failure.
func AssertFailure(body gjson.Result, status int, name string) (Failure, error) {
	if err := AssertObject(body, name, ""); err != nil {
		return Failure{}, err
	}
	if s := body.Get("status"); s.Exists() {
		if err := AssertStringEnum(s, name, "status", []string{StatusFailed}); err != nil {
			return Failure{}, err
		}
	}
	requestID := body.Get("requestId")
	if err := AssertOptionalString(requestID, name, "requestId"); err != nil {
		return Failure{}, err
	}

	allowed, ok := labelsByStatus[status]
	if !ok {
		// No label can be valid for this status.
		allowed = []string{}
	}
	label := body.Get("label")
	if err := AssertStringEnum(label, name, "label", allowed); err != nil {
		return Failure{}, err
	}
	message := body.Get("message")
	if err := AssertString(message, name, "message"); err != nil {
		return Failure{}, err
	}

	out := Failure{
		Status:    status,
		RequestID: requestID.Str,
		Label:     label.Str,
		Message:   message.Str,
	}

	details := body.Get("details")
	if !details.Exists() {
		if detailedLabels[label.Str] {
			return Failure{}, fail(name, "details", "array", details)
		}
		return out, nil
	}
	err := AssertArrayOf(details, name, "details", func(item gjson.Result, p string) error {
		if err := AssertObject(item, name, p); err != nil {
			return err
		}
		if err := AssertString(item.Get("field"), name, p+".field"); err != nil {
			return err
		}
		if err := AssertString(item.Get("issue"), name, p+".issue"); err != nil {
			return err
		}
		out.Details = append(out.Details, Detail{Field: item.Get("field").Str, Issue: item.Get("issue").Str})
		return nil
	})
	if err != nil {
		return Failure{}, err
	}
	return out, nil
}
