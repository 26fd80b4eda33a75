package generation

import (
	"context"
	"sync"
)

// fakeClient scripts client behavior for wrapper and poller tests.
type fakeClient struct {
	mu sync.Mutex

	generateResults []fakeOutcome[*Result]
	submitResults   []fakeOutcome[*JobHandle]
	pollResults     []fakeOutcome[*JobHandle]
	artifact        *Media
	artifactErr     error

	generateCalls int
	submitCalls   int
	pollCalls     int
	fetchCalls    int
}

type fakeOutcome[T any] struct {
	value T
	err   error
}

func (f *fakeClient) Generate(ctx context.Context, req Request) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.generateResults[min(f.generateCalls, len(f.generateResults)-1)]
	f.generateCalls++
	return out.value, out.err
}

func (f *fakeClient) SubmitVideo(ctx context.Context, req Request) (*JobHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.submitResults[min(f.submitCalls, len(f.submitResults)-1)]
	f.submitCalls++
	return out.value, out.err
}

func (f *fakeClient) PollVideo(ctx context.Context, handle *JobHandle) (*JobHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pollResults[min(f.pollCalls, len(f.pollResults)-1)]
	f.pollCalls++
	return out.value, out.err
}

func (f *fakeClient) FetchArtifact(ctx context.Context, uri string) (*Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.artifactErr != nil {
		return nil, f.artifactErr
	}
	return f.artifact, nil
}

func (f *fakeClient) calls() (generate, submit, poll, fetch int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generateCalls, f.submitCalls, f.pollCalls, f.fetchCalls
}

// fakeGate counts prompt invocations for retry-policy assertions.
type fakeGate struct {
	mu         sync.Mutex
	has        bool
	promptErr  error
	promptSeen int
}

func (g *fakeGate) HasCredential(context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.has
}

func (g *fakeGate) RequestCredential(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.promptSeen++
	if g.promptErr != nil {
		return g.promptErr
	}
	g.has = true
	return nil
}

func (g *fakeGate) prompts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.promptSeen
}
