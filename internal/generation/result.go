package generation

// Result is the outcome of a completed generation. Exactly one of Text or
// Media is set. Results are never mutated after creation; a new one
// replaces an old one.
type Result struct {
	Text  string
	Media *Media
}

// Media is a displayable generated artifact.
type Media struct {
	MIMEType string
	Data     []byte
}

// JobHandle represents an in-flight asynchronous video generation job on
// the remote service. It is created by submitting a video request and
// mutated only by re-fetching its status; once Done it is never polled
// again.
type JobHandle struct {
	// ID is the remote operation name, opaque to callers.
	ID   string
	Done bool
	// ArtifactURI is set when the job finished successfully. Fetching it
	// requires the active credential appended as a query key.
	ArtifactURI string
	// FailureMessage is set when the job finished with an error payload.
	FailureMessage string

	// Raw carries the provider's operation object between status
	// re-fetches. Opaque to everything outside the provider client.
	Raw any
}

// Failed reports whether a done handle carries an error payload instead of
// an artifact.
func (h *JobHandle) Failed() bool {
	return h.Done && h.FailureMessage != ""
}
