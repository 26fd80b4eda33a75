package generation

import (
	"context"
	"fmt"
	"time"

	"nanobanana/internal/logging"
)

const (
	// DefaultPollInterval is the fixed cadence between status re-fetches.
	DefaultPollInterval = 10 * time.Second
	// DefaultMaxWait bounds how long a job may stay in progress before the
	// poller gives up with a timeout failure.
	DefaultMaxWait = 10 * time.Minute
)

// Poller drives a submitted JobHandle to its terminal outcome: it waits a
// fixed interval, re-fetches the handle's status until the job reports
// done, then performs exactly one fetch of the artifact payload. Callers
// only ever observe a terminal result, never an in-progress state.
type Poller struct {
	client   Client
	interval time.Duration
	maxWait  time.Duration
	logger   logging.Logger
}

// NewPoller builds a poller over client. Non-positive interval or ceiling
// values fall back to the defaults.
func NewPoller(client Client, interval, maxWait time.Duration, logger logging.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Poller{
		client:   client,
		interval: interval,
		maxWait:  maxWait,
		logger:   logging.OrNop(logger),
	}
}

// Wait blocks until the handle reaches a terminal state and returns the
// fetched artifact. The wait is cancellable through ctx; the remote job is
// not cancelled, only abandoned.
func (p *Poller) Wait(ctx context.Context, handle *JobHandle) (*Result, error) {
	if handle == nil {
		return nil, fmt.Errorf("nil job handle")
	}

	deadline := time.Now().Add(p.maxWait)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for !handle.Done {
		if time.Now().After(deadline) {
			return nil, &TimeoutError{
				Message: fmt.Sprintf("job %s did not complete within %s", handle.ID, p.maxWait),
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("polling cancelled: %w", ctx.Err())
		case <-ticker.C:
		}

		refreshed, err := p.client.PollVideo(ctx, handle)
		if err != nil {
			return nil, err
		}
		handle = refreshed
		p.logger.Debug("job %s polled, done=%t", handle.ID, handle.Done)
	}

	if handle.Failed() {
		return nil, &JobFailureError{Message: handle.FailureMessage}
	}
	if handle.ArtifactURI == "" {
		return nil, &EmptyResultError{Message: "job finished without an artifact"}
	}

	media, err := p.client.FetchArtifact(ctx, handle.ArtifactURI)
	if err != nil {
		return nil, fmt.Errorf("artifact fetch failed: %w", err)
	}
	return &Result{Media: media}, nil
}
