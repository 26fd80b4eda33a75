package generation

import "context"

// Client is the remote generation service boundary. Chat, image and
// face-swap requests complete in one round trip through Generate; video
// requests are submitted and then driven by the Poller.
//
// Implementations are constructed dependencies. The provider-backed
// implementation lives in the gemini subpackage; tests substitute fakes.
type Client interface {
	// Generate performs one synchronous round trip for Chat, Image and
	// FaceSwap requests.
	Generate(ctx context.Context, req Request) (*Result, error)

	// SubmitVideo performs the submission round trip for a Video request
	// and returns a handle that must be polled to completion.
	SubmitVideo(ctx context.Context, req Request) (*JobHandle, error)

	// PollVideo re-fetches the status of an in-flight handle. Callers
	// must not invoke it once the handle is done.
	PollVideo(ctx context.Context, handle *JobHandle) (*JobHandle, error)

	// FetchArtifact downloads the artifact a finished job points at and
	// returns it as displayable media. A failure here is terminal and is
	// not retried.
	FetchArtifact(ctx context.Context, uri string) (*Media, error)
}
