package relayer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/R3E-Network/relayer_sdk/pkg/relayer/validate"
)

var decodeKeyURL = decodeWith[KeyURLResult](validate.AssertKeyURLResult)

// FetchKeyURL fetches the locations of the relayer's FHE public key and CRS. It is a
// single GET without a job, bounded by the request timeout.
func (c *Client) FetchKeyURL(ctx context.Context, opts ...RequestOption) (res KeyURLResult, err error) {
	o := c.requestOptions(opts)
	target, err := joinURL(c.cfg.BaseURL, OpKeyURL.Path())
	if err != nil {
		return res, err
	}
	ec := ErrorContext{Operation: OpKeyURL, Method: http.MethodGet, URL: target, RequestID: newRequestID()}
	log := c.cfg.Logger.WithField("request_id", ec.RequestID).WithField("operation", OpKeyURL)

	start := c.clock.Now()
	defer func() {
		outcome := ReasonCompleted
		switch {
		case err == nil:
		case IsCancellation(err):
			var cerr *CancelError
			if errors.As(err, &cerr) {
				outcome = cerr.Reason
			}
		default:
			outcome = ReasonFailed
		}
		requestsTotal.WithLabelValues(string(OpKeyURL), string(outcome)).Inc()
		requestDuration.WithLabelValues(string(OpKeyURL)).Observe(c.clock.Now().Sub(start).Seconds())
	}()

	ctx, cancel := context.WithTimeoutCause(ctx, o.timeout, errDeadlineExceeded)
	defer cancel()

	canceled := func(cause error) error {
		ec.Elapsed = c.clock.Now().Sub(start)
		return newCancelError(ec, reasonFor(context.Cause(ctx)), cause)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return res, canceled(context.Cause(ctx))
			}
			return res, newTransportError(ec, fmt.Errorf("wait for rate limiter: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return res, newInternalError(ec, "build request", err)
	}
	req.Header = requestHeaders(ec.RequestID, c.cfg.UserAgent, false)
	if o.auth != nil {
		o.auth.apply(req)
	}

	log.Debug("fetching key urls")
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return res, canceled(context.Cause(ctx))
		}
		return res, newTransportError(ec, err)
	}
	data, truncated, err := readAllWithLimit(resp.Body, maxResponseBytes)
	resp.Body.Close()
	if ctx.Err() != nil {
		return res, canceled(context.Cause(ctx))
	}

	ec.Status = resp.StatusCode
	ec.Elapsed = c.clock.Now().Sub(start)
	httpResponses.WithLabelValues(string(OpKeyURL), http.MethodGet, strconv.Itoa(resp.StatusCode)).Inc()
	if err != nil {
		return res, newTransportError(ec, fmt.Errorf("read response body: %w", err))
	}
	if truncated {
		return res, newTransportError(ec, fmt.Errorf("response body exceeds %d bytes", maxResponseBytes))
	}

	name := OpKeyURL.responseName()
	if resp.StatusCode != http.StatusOK && validate.LabelsFor(resp.StatusCode) == nil {
		return res, &UnexpectedStatusError{ErrorContext: ec, Body: bodySnippet(data)}
	}
	body, err := validate.Parse(data)
	if err != nil {
		return res, newTransportError(ec, err)
	}
	if resp.StatusCode != http.StatusOK {
		failure, err := validate.AssertFailure(body, resp.StatusCode, name)
		if err != nil {
			return res, newValidationError(ec, err)
		}
		return res, newAPIError(ec, failure)
	}

	env, err := validate.AssertSucceeded(body, name)
	if err != nil {
		return res, newValidationError(ec, err)
	}
	res, err = decodeKeyURL(env.Result, name)
	if err != nil {
		return KeyURLResult{}, newValidationError(ec, err)
	}
	log.WithField("crs_sizes", len(res.CRS)).Debug("fetched key urls")
	return res, nil
}
