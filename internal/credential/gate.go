// Package credential implements the check-and-prompt mechanism that keeps
// remote calls behind a usable API credential.
package credential

import (
	"context"
	"sync"

	"nanobanana/internal/logging"
)

// Gate reports whether a usable credential is currently selected and can
// prompt the host environment to let the user pick one.
type Gate interface {
	// HasCredential queries the host capability. Hosts without the
	// capability report true, degrading gracefully to "no gating".
	HasCredential(ctx context.Context) bool

	// RequestCredential opens the host's credential-selection UI and
	// suspends the caller until the user completes or cancels it. It does
	// not verify that the new credential was accepted; callers re-check
	// or simply retry the failed operation.
	RequestCredential(ctx context.Context) error
}

// StaticGate assumes a credential is always present. Used when the
// surrounding shell exposes no selection capability.
type StaticGate struct{}

func (StaticGate) HasCredential(context.Context) bool      { return true }
func (StaticGate) RequestCredential(context.Context) error { return nil }

// Notifier delivers the credential-required prompt to the host shell
// (in this deployment, an event pushed to the Mini App client).
type Notifier interface {
	NotifyCredentialRequired()
}

// PromptGate bridges the gate to an interactive host shell. The selected
// flag is the process-wide credential state: read before remote calls,
// flipped only by Selected when the shell reports the user's choice.
type PromptGate struct {
	notifier Notifier
	logger   logging.Logger

	mu       sync.Mutex
	selected bool
	waiters  []chan struct{}
}

// NewPromptGate returns a gate that suspends callers on the host shell's
// credential-selection UI.
func NewPromptGate(notifier Notifier, logger logging.Logger) *PromptGate {
	return &PromptGate{
		notifier: notifier,
		logger:   logging.OrNop(logger),
	}
}

func (g *PromptGate) HasCredential(context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.selected
}

// RequestCredential notifies the shell and blocks until Selected is called
// or the context ends. A cancelled prompt surfaces as the context error;
// the caller's subsequent remote call then fails on its own terms.
func (g *PromptGate) RequestCredential(ctx context.Context) error {
	g.mu.Lock()
	if g.selected {
		g.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	g.waiters = append(g.waiters, ready)
	g.mu.Unlock()

	g.logger.Info("credential selection requested")
	if g.notifier != nil {
		g.notifier.NotifyCredentialRequired()
	}

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Selected records that the user completed credential selection and wakes
// every suspended caller.
func (g *PromptGate) Selected() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selected = true
	for _, ready := range g.waiters {
		close(ready)
	}
	g.waiters = nil
}

// Invalidate clears the credential state, typically after the provider
// rejects the key again right after a selection.
func (g *PromptGate) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selected = false
}
