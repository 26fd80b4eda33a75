package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"nanobanana/internal/generation"
	"nanobanana/internal/logging"
)

// Listener observes history mutations. The WebSocket hub implements it to
// push events to the client.
type Listener interface {
	OnMessageAdded(mode Mode, msg Message)
	OnMessageSettled(mode Mode, msg Message)
}

// NopListener discards all events.
type NopListener struct{}

func (NopListener) OnMessageAdded(Mode, Message)   {}
func (NopListener) OnMessageSettled(Mode, Message) {}

// Submission is one generate call from the client.
type Submission struct {
	Mode       Mode
	Prompt     string
	Model      string
	Attachment *generation.Attachment
	Face       *generation.Attachment
	Target     *generation.Attachment
	Shape      generation.Shape
}

// Poller waits out an asynchronous job to its terminal result.
type Poller interface {
	Wait(ctx context.Context, handle *generation.JobHandle) (*generation.Result, error)
}

// Orchestrator drives submissions through the generation pipeline. Submit
// returns a placeholder id immediately; the pipeline runs on its own
// goroutine and settles the placeholder exactly once. Concurrent
// submissions are independent chains.
type Orchestrator struct {
	client   generation.Client
	poller   Poller
	history  *History
	media    *MediaCache
	listener Listener
	metrics  *Metrics
	logger   logging.Logger

	// baseCtx bounds pipeline goroutines to the process lifetime instead
	// of the submitting HTTP request.
	baseCtx context.Context
	wg      sync.WaitGroup
}

func NewOrchestrator(baseCtx context.Context, client generation.Client, poller Poller, history *History, media *MediaCache, listener Listener, metrics *Metrics, logger logging.Logger) *Orchestrator {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if listener == nil {
		listener = NopListener{}
	}
	return &Orchestrator{
		baseCtx:  baseCtx,
		client:   client,
		poller:   poller,
		history:  history,
		media:    media,
		listener: listener,
		metrics:  metrics,
		logger:   logging.OrNop(logger),
	}
}

// Submit validates the submission, appends the user message and a pending
// placeholder, and returns the placeholder id before any network call or
// suspension. Validation failures return immediately with nothing
// appended.
func (o *Orchestrator) Submit(_ context.Context, sub Submission) (string, error) {
	req, err := buildRequest(sub)
	if err != nil {
		return "", err
	}

	now := time.Now()
	userMsg := Message{
		ID:        uuid.NewString(),
		Type:      TypeText,
		Content:   userContent(sub),
		Sender:    SenderUser,
		Timestamp: now,
	}
	switch sub.Mode {
	case ModeFaceSwap:
		userMsg.Attachments = []*generation.Attachment{sub.Face, sub.Target}
	default:
		if sub.Attachment != nil {
			userMsg.Attachments = []*generation.Attachment{sub.Attachment}
		}
	}

	placeholder := Message{
		ID:        uuid.NewString(),
		Type:      placeholderType(sub.Mode),
		Content:   placeholderContent(sub),
		Sender:    SenderAI,
		Timestamp: now,
		Status:    StatusPending,
	}

	o.history.Append(sub.Mode, userMsg)
	o.listener.OnMessageAdded(sub.Mode, userMsg)
	o.history.Append(sub.Mode, placeholder)
	o.listener.OnMessageAdded(sub.Mode, placeholder)

	o.metrics.IncSubmission(sub.Mode)
	o.metrics.IncActive()
	o.wg.Add(1)
	go o.run(sub.Mode, placeholder, req)

	return placeholder.ID, nil
}

// Drain blocks until in-flight pipelines settle or ctx ends.
func (o *Orchestrator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(mode Mode, placeholder Message, req generation.Request) {
	defer o.wg.Done()
	defer o.metrics.DecActive()

	var once sync.Once
	settle := func(msg Message, outcome string) {
		once.Do(func() {
			msg.ID = placeholder.ID
			msg.Sender = SenderAI
			msg.Timestamp = time.Now()
			o.history.Replace(mode, placeholder.ID, msg)
			o.listener.OnMessageSettled(mode, msg)
			o.metrics.IncSettled(mode, outcome)
		})
	}

	res, err := o.execute(req)
	if err != nil {
		o.logger.Warn("%s generation %s failed: %v", mode, placeholder.ID, err)
		settle(Message{
			Type:    TypeText,
			Content: "Error: " + failureText(err),
			Status:  StatusError,
		}, "failure")
		return
	}

	msg := Message{Type: placeholder.Type, Content: placeholder.Content, Status: StatusDone}
	if res.Media != nil {
		msg.MediaID = o.media.Put(res.Media)
	} else {
		msg.Type = TypeText
		msg.Content = res.Text
	}
	o.logger.Info("%s generation %s settled", mode, placeholder.ID)
	settle(msg, "success")
}

func (o *Orchestrator) execute(req generation.Request) (*generation.Result, error) {
	ctx := o.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Kind != generation.KindVideo {
		return o.client.Generate(ctx, req)
	}
	handle, err := o.client.SubmitVideo(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.poller.Wait(ctx, handle)
}

func buildRequest(sub Submission) (generation.Request, error) {
	switch sub.Mode {
	case ModeChat:
		return generation.NewChatRequest(sub.Prompt, sub.Model, sub.Attachment)
	case ModeImage:
		return generation.NewImageRequest(sub.Prompt, sub.Model, sub.Shape)
	case ModeVideo:
		return generation.NewVideoRequest(sub.Prompt, sub.Attachment, sub.Shape)
	case ModeFaceSwap:
		return generation.NewFaceSwapRequest(sub.Face, sub.Target, sub.Prompt)
	}
	return generation.Request{}, &generation.ValidationError{Field: "mode", Message: "unknown mode"}
}

func userContent(sub Submission) string {
	if sub.Prompt != "" {
		return sub.Prompt
	}
	if sub.Mode == ModeFaceSwap {
		return "Swapping faces..."
	}
	return "Processing..."
}

func placeholderType(mode Mode) MessageType {
	switch mode {
	case ModeImage, ModeFaceSwap:
		return TypeImage
	case ModeVideo:
		return TypeVideo
	}
	return TypeText
}

func placeholderContent(sub Submission) string {
	if sub.Mode == ModeFaceSwap {
		return "Swapping faces... " + sub.Prompt
	}
	return sub.Prompt
}

// failureText converts pipeline failures into the user-facing row content.
func failureText(err error) string {
	switch {
	case generation.IsTimeout(err):
		return "generation timed out, please try again."
	case generation.IsEmptyResultError(err):
		return "the model returned no result."
	case generation.IsAuthError(err):
		return "credential selection did not complete."
	default:
		return err.Error()
	}
}
