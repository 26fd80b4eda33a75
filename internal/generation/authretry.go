package generation

import (
	"context"

	"nanobanana/internal/credential"
	"nanobanana/internal/logging"
)

// AuthRetryClient decorates a Client with the credential policy: when a
// call fails with the invalid-credential class, prompt the gate once and
// retry the call exactly once. Any failure on the retry, or a different
// error class on the first attempt, propagates unmodified.
//
// The policy covers Generate, SubmitVideo and PollVideo. Status re-fetches
// during a poll get the same treatment as synchronous calls. FetchArtifact
// passes through: a failed artifact download is terminal.
type AuthRetryClient struct {
	inner  Client
	gate   credential.Gate
	logger logging.Logger
}

// invalidator is implemented by gates that track a selected credential
// and can drop it after the provider rejects it.
type invalidator interface {
	Invalidate()
}

// NewAuthRetryClient wraps inner with the one-retry credential policy.
func NewAuthRetryClient(inner Client, gate credential.Gate, logger logging.Logger) *AuthRetryClient {
	if gate == nil {
		gate = credential.StaticGate{}
	}
	return &AuthRetryClient{
		inner:  inner,
		gate:   gate,
		logger: logging.OrNop(logger),
	}
}

func (c *AuthRetryClient) Generate(ctx context.Context, req Request) (*Result, error) {
	return withAuthRetry(ctx, c, func(ctx context.Context) (*Result, error) {
		return c.inner.Generate(ctx, req)
	})
}

func (c *AuthRetryClient) SubmitVideo(ctx context.Context, req Request) (*JobHandle, error) {
	return withAuthRetry(ctx, c, func(ctx context.Context) (*JobHandle, error) {
		return c.inner.SubmitVideo(ctx, req)
	})
}

func (c *AuthRetryClient) PollVideo(ctx context.Context, handle *JobHandle) (*JobHandle, error) {
	return withAuthRetry(ctx, c, func(ctx context.Context) (*JobHandle, error) {
		return c.inner.PollVideo(ctx, handle)
	})
}

func (c *AuthRetryClient) FetchArtifact(ctx context.Context, uri string) (*Media, error) {
	return c.inner.FetchArtifact(ctx, uri)
}

// withAuthRetry runs fn with an explicit bounded loop: at most two
// attempts, with one credential prompt between them. The reactive path is
// the contract; the pre-call check is only an optimization that saves a
// doomed round trip when the gate already knows no credential is selected.
func withAuthRetry[T any](ctx context.Context, c *AuthRetryClient, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if !c.gate.HasCredential(ctx) {
		if err := c.gate.RequestCredential(ctx); err != nil {
			return zero, err
		}
	}

	result, err := fn(ctx)
	if err == nil || !IsAuthError(err) {
		return result, err
	}

	c.logger.Warn("credential rejected by provider, prompting for re-selection: %v", err)
	// The provider just proved the selected credential unusable. Clear it
	// first, otherwise a gate that still remembers the old selection would
	// answer the prompt without ever reaching the shell.
	if inv, ok := c.gate.(invalidator); ok {
		inv.Invalidate()
	}
	if perr := c.gate.RequestCredential(ctx); perr != nil {
		return zero, perr
	}

	// Exactly one retry; its error propagates as-is.
	return fn(ctx)
}
