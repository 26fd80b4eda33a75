package generation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"nanobanana/internal/credential"
)

// ackNotifier counts prompts delivered to the shell and immediately
// acknowledges each one, as a responsive Mini App client would.
type ackNotifier struct {
	gate *credential.PromptGate

	mu      sync.Mutex
	prompts int
}

func (n *ackNotifier) NotifyCredentialRequired() {
	n.mu.Lock()
	n.prompts++
	n.mu.Unlock()
	n.gate.Selected()
}

func (n *ackNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.prompts
}

func TestAuthRetrySucceedsWithoutRetry(t *testing.T) {
	fake := &fakeClient{
		generateResults: []fakeOutcome[*Result]{{value: &Result{Text: "hi there"}}},
	}
	gate := &fakeGate{has: true}
	client := NewAuthRetryClient(fake, gate, nil)

	res, err := client.Generate(context.Background(), Request{Kind: KindChat, Prompt: "hello"})
	require.NoError(t, err)
	require.Equal(t, "hi there", res.Text)
	require.Equal(t, 0, gate.prompts())

	generate, _, _, _ := fake.calls()
	require.Equal(t, 1, generate)
}

func TestAuthRetryRecoversAfterSinglePrompt(t *testing.T) {
	authFailure := &AuthError{Err: errors.New("Requested entity was not found")}
	fake := &fakeClient{
		generateResults: []fakeOutcome[*Result]{
			{err: authFailure},
			{value: &Result{Text: "recovered"}},
		},
	}
	gate := &fakeGate{has: true}
	client := NewAuthRetryClient(fake, gate, nil)

	res, err := client.Generate(context.Background(), Request{Kind: KindChat, Prompt: "hello"})
	require.NoError(t, err)
	require.Equal(t, "recovered", res.Text)
	require.Equal(t, 1, gate.prompts(), "the prompt must be invoked exactly once")

	generate, _, _, _ := fake.calls()
	require.Equal(t, 2, generate)
}

func TestAuthRetryPropagatesSecondFailure(t *testing.T) {
	first := &AuthError{Err: errors.New("Requested entity was not found")}
	second := &AuthError{Err: errors.New("Requested entity was not found (again)")}
	fake := &fakeClient{
		generateResults: []fakeOutcome[*Result]{{err: first}, {err: second}},
	}
	gate := &fakeGate{has: true}
	client := NewAuthRetryClient(fake, gate, nil)

	_, err := client.Generate(context.Background(), Request{Kind: KindChat, Prompt: "hello"})
	require.ErrorIs(t, err, second, "the second failure propagates, not the first")
	require.Equal(t, 1, gate.prompts(), "no further retries after the single cycle")

	generate, _, _, _ := fake.calls()
	require.Equal(t, 2, generate)
}

func TestAuthRetryIgnoresOtherErrorClasses(t *testing.T) {
	transport := errors.New("connection reset by peer")
	fake := &fakeClient{
		generateResults: []fakeOutcome[*Result]{{err: transport}},
	}
	gate := &fakeGate{has: true}
	client := NewAuthRetryClient(fake, gate, nil)

	_, err := client.Generate(context.Background(), Request{Kind: KindChat, Prompt: "hello"})
	require.ErrorIs(t, err, transport)
	require.Equal(t, 0, gate.prompts())

	generate, _, _, _ := fake.calls()
	require.Equal(t, 1, generate, "non-auth failures are never retried")
}

func TestAuthRetryPreCheckPromptsBeforeCall(t *testing.T) {
	fake := &fakeClient{
		generateResults: []fakeOutcome[*Result]{{value: &Result{Text: "ok"}}},
	}
	gate := &fakeGate{has: false}
	client := NewAuthRetryClient(fake, gate, nil)

	_, err := client.Generate(context.Background(), Request{Kind: KindChat, Prompt: "hello"})
	require.NoError(t, err)
	require.Equal(t, 1, gate.prompts())
}

func TestAuthRetryCoversVideoSubmissionAndPolling(t *testing.T) {
	authFailure := &AuthError{Err: errors.New("Requested entity was not found")}
	fake := &fakeClient{
		submitResults: []fakeOutcome[*JobHandle]{
			{err: authFailure},
			{value: &JobHandle{ID: "op-1"}},
		},
		pollResults: []fakeOutcome[*JobHandle]{
			{err: authFailure},
			{value: &JobHandle{ID: "op-1", Done: true, ArtifactURI: "https://example.com/v"}},
		},
	}
	gate := &fakeGate{has: true}
	client := NewAuthRetryClient(fake, gate, nil)

	handle, err := client.SubmitVideo(context.Background(), Request{Kind: KindVideo, Prompt: "sunset"})
	require.NoError(t, err)
	require.Equal(t, "op-1", handle.ID)

	refreshed, err := client.PollVideo(context.Background(), handle)
	require.NoError(t, err)
	require.True(t, refreshed.Done)

	require.Equal(t, 2, gate.prompts())
}

func TestAuthRetryDoesNotWrapArtifactFetch(t *testing.T) {
	fetchErr := errors.New("Requested entity was not found")
	fake := &fakeClient{artifactErr: fetchErr}
	gate := &fakeGate{has: true}
	client := NewAuthRetryClient(fake, gate, nil)

	_, err := client.FetchArtifact(context.Background(), "https://example.com/v")
	require.ErrorIs(t, err, fetchErr)
	require.Equal(t, 0, gate.prompts(), "artifact fetch failures are terminal")

	_, _, _, fetch := fake.calls()
	require.Equal(t, 1, fetch)
}

func TestAuthRetryRepromptsAfterKeyRevocation(t *testing.T) {
	// A key selected earlier in the session is later rejected by the
	// provider. The prompt must reach the shell again, not short-circuit
	// on the stale selection.
	fake := &fakeClient{
		generateResults: []fakeOutcome[*Result]{
			{err: &AuthError{Err: errors.New("Requested entity was not found")}},
			{value: &Result{Text: "recovered with fresh key"}},
		},
	}
	notifier := &ackNotifier{}
	gate := credential.NewPromptGate(notifier, nil)
	notifier.gate = gate
	gate.Selected()
	client := NewAuthRetryClient(fake, gate, nil)

	res, err := client.Generate(context.Background(), Request{Kind: KindChat, Prompt: "hello"})
	require.NoError(t, err)
	require.Equal(t, "recovered with fresh key", res.Text)
	require.Equal(t, 1, notifier.count(), "the shell must be re-prompted despite the prior selection")
	require.True(t, gate.HasCredential(context.Background()))
}

func TestAuthRetryRevokedKeyStillDeadAfterReselection(t *testing.T) {
	first := &AuthError{Err: errors.New("Requested entity was not found")}
	second := &AuthError{Err: errors.New("Requested entity was not found (again)")}
	fake := &fakeClient{
		generateResults: []fakeOutcome[*Result]{{err: first}, {err: second}},
	}
	notifier := &ackNotifier{}
	gate := credential.NewPromptGate(notifier, nil)
	notifier.gate = gate
	gate.Selected()
	client := NewAuthRetryClient(fake, gate, nil)

	_, err := client.Generate(context.Background(), Request{Kind: KindChat, Prompt: "hello"})
	require.ErrorIs(t, err, second)
	require.Equal(t, 1, notifier.count(), "one prompt per failed call, no further retries")

	generate, _, _, _ := fake.calls()
	require.Equal(t, 2, generate)
}

func TestAuthRetryPromptFailurePropagates(t *testing.T) {
	promptErr := context.Canceled
	fake := &fakeClient{
		generateResults: []fakeOutcome[*Result]{
			{err: &AuthError{Err: errors.New("Requested entity was not found")}},
		},
	}
	gate := &fakeGate{has: true, promptErr: promptErr}
	client := NewAuthRetryClient(fake, gate, nil)

	_, err := client.Generate(context.Background(), Request{Kind: KindChat, Prompt: "hello"})
	require.ErrorIs(t, err, promptErr)

	generate, _, _, _ := fake.calls()
	require.Equal(t, 1, generate)
}
