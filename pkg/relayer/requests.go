package relayer

import "context"

// RequestInputProof submits an input-proof job and waits for its result.
func (c *Client) RequestInputProof(ctx context.Context, payload InputProofPayload, opts ...RequestOption) (InputProofResult, error) {
	req, err := c.NewInputProofRequest(payload, opts...)
	if err != nil {
		return InputProofResult{}, err
	}
	return req.Run(ctx)
}

// PublicDecrypt submits a public decryption job and waits for its result.
func (c *Client) PublicDecrypt(ctx context.Context, payload PublicDecryptPayload, opts ...RequestOption) (PublicDecryptResult, error) {
	req, err := c.NewPublicDecryptRequest(payload, opts...)
	if err != nil {
		return PublicDecryptResult{}, err
	}
	return req.Run(ctx)
}

// UserDecrypt submits a user decryption job and waits for its result.
func (c *Client) UserDecrypt(ctx context.Context, payload UserDecryptPayload, opts ...RequestOption) (UserDecryptResult, error) {
	req, err := c.NewUserDecryptRequest(payload, opts...)
	if err != nil {
		return UserDecryptResult{}, err
	}
	return req.Run(ctx)
}
