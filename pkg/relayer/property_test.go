package relayer

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/R3E-Network/relayer_sdk/pkg/relayer/relayertest"
)

func propertyParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	return parameters
}

// Property: N queued poll replies before success => 1 POST, N+1 GETs.
func TestRequest_QueuedSequenceProperty(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("polls once per queued reply and posts once", prop.ForAll(
		func(n int) bool {
			srv := relayertest.NewServer()
			defer srv.Close()

			srv.OnPost("public-decrypt", relayertest.Queued("job", "1"))
			for i := 0; i < n; i++ {
				srv.OnPoll("public-decrypt", relayertest.Queued("job", "1"))
			}
			srv.OnPoll("public-decrypt", relayertest.Succeeded(`{"signatures":[],"decryptedValue":"0x01","extraData":"0x00"}`))
			client, _ := newTestClient(t, srv)

			req, err := client.NewPublicDecryptRequest(PublicDecryptPayload{})
			if err != nil {
				return false
			}
			res, err := req.Run(context.Background())
			if err != nil {
				t.Logf("Run() error = %v", err)
				return false
			}
			return len(res.DecryptedValue) == 1 &&
				srv.Count(http.MethodPost) == 1 &&
				srv.Count(http.MethodGet) == n+1 &&
				req.RetryCount() == n+1 &&
				req.Completed()
		},
		gen.IntRange(0, 12),
	))

	properties.TestingRun(t)
}

// Property: k rate-limited POST replies => retryCount k with no job id until the 202.
func TestRequest_RateLimitedSequenceProperty(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("retry count tracks 429s and job id waits for 202", prop.ForAll(
		func(k int) bool {
			srv := relayertest.NewServer()
			defer srv.Close()

			for i := 0; i < k; i++ {
				srv.OnPost("input-proof", relayertest.Failure(http.StatusTooManyRequests, "rate_limited", "slow down"))
			}
			srv.OnPost("input-proof", relayertest.Queued("j", "1"))
			srv.OnPoll("input-proof", relayertest.Succeeded(rejectedProof))
			client, _ := newTestClient(t, srv)

			events := make(chan ProgressEvent, k+2)
			req, err := client.NewInputProofRequest(testInputProofPayload(), WithProgress(func(ev ProgressEvent) {
				events <- ev
			}))
			if err != nil {
				return false
			}
			if _, err := req.Run(context.Background()); err != nil {
				t.Logf("Run() error = %v", err)
				return false
			}

			for i := 0; i <= k; i++ {
				var ev ProgressEvent
				select {
				case ev = <-events:
				case <-time.After(2 * time.Second):
					t.Logf("progress event %d missing", i)
					return false
				}
				if ev.RetryCount != i+1 {
					return false
				}
				if i < k && (ev.Kind != ProgressRateLimited || ev.JobID != "") {
					return false
				}
				if i == k && (ev.Kind != ProgressQueued || ev.JobID != "j") {
					return false
				}
			}
			return req.RetryCount() == k+1 && srv.Count(http.MethodPost) == k+1
		},
		gen.IntRange(0, 12),
	))

	properties.TestingRun(t)
}
