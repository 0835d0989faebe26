// Package relayer is a client for the relayer job API. A caller submits input-proof,
// public-decrypt and user-decrypt jobs; each job is driven by a Request that posts
// the payload, polls for completion under the relayer's Retry-After hints, enforces a
// global deadline and supports cancellation.
package relayer

import (
	"encoding/json"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/R3E-Network/relayer_sdk/pkg/relayer/validate"
)

// Client creates relayer requests. Requests created by one Client share its HTTP
// client and rate limiter but no request state.
type Client struct {
	cfg     Config
	limiter *rate.Limiter
	clock   clock
}

// New validates cfg and returns a Client holding a copy of it.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if cfg.Verification != nil {
		v := *cfg.Verification
		cfg.Verification = &v
	}

	c := &Client{cfg: cfg, clock: realClock{}}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	}
	return c, nil
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// NewInputProofRequest prepares an input-proof job. With verification configured, an
// accepted proof must carry enough coprocessor signatures.
func (c *Client) NewInputProofRequest(payload InputProofPayload, opts ...RequestOption) (*Request[InputProofResult], error) {
	payload = payload.withDefaults()
	var verify func(InputProofResult) error
	if v := c.cfg.Verification; v != nil {
		verify = func(res InputProofResult) error { return v.VerifyInputProof(payload, res) }
	}
	return newRequest(c, OpInputProof, payload, decodeWith[InputProofResult](validate.AssertInputProofResult), verify, opts)
}

// NewPublicDecryptRequest prepares a public decryption job.
func (c *Client) NewPublicDecryptRequest(payload PublicDecryptPayload, opts ...RequestOption) (*Request[PublicDecryptResult], error) {
	payload = payload.withDefaults()
	var verify func(PublicDecryptResult) error
	if v := c.cfg.Verification; v != nil {
		verify = func(res PublicDecryptResult) error { return v.VerifyPublicDecrypt(payload, res) }
	}
	return newRequest(c, OpPublicDecrypt, payload, decodeWith[PublicDecryptResult](validate.AssertPublicDecryptResult), verify, opts)
}

// NewUserDecryptRequest prepares a user decryption job. The shares are re-encrypted
// for the user and are not verified here.
func (c *Client) NewUserDecryptRequest(payload UserDecryptPayload, opts ...RequestOption) (*Request[UserDecryptResult], error) {
	payload = payload.withDefaults()
	return newRequest(c, OpUserDecrypt, payload, decodeWith[UserDecryptResult](validate.AssertUserDecryptResult), nil, opts)
}

func newRequest[T any](c *Client, op Operation, payload any, decode resultDecoder[T], verify func(T) error, opts []RequestOption) (*Request[T], error) {
	target, err := joinURL(c.cfg.BaseURL, op.Path())
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", op, err)
	}

	return &Request[T]{
		op:        op,
		url:       target,
		body:      body,
		opts:      c.requestOptions(opts),
		http:      c.cfg.HTTPClient,
		limiter:   c.limiter,
		log:       c.cfg.Logger,
		clock:     c.clock,
		userAgent: c.cfg.UserAgent,
		id:        newRequestID(),
		decode:    decode,
		verify:    verify,
	}, nil
}

func (c *Client) requestOptions(opts []RequestOption) requestOptions {
	o := requestOptions{
		timeout:             c.cfg.Timeout,
		throwIfNoRetryAfter: c.cfg.ThrowErrorIfNoRetryAfter,
		auth:                c.cfg.Auth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
