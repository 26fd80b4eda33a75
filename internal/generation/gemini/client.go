// Package gemini implements the generation client on the Google GenAI API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"nanobanana/internal/generation"
	"nanobanana/internal/logging"
)

const (
	artifactHTTPTimeout = 2 * time.Minute
	maxArtifactBytes    = 64 * 1024 * 1024
)

// Client talks to the Gemini API. It is a constructed dependency: build it
// once and inject it wherever a generation.Client is needed.
type Client struct {
	api    *genai.Client
	apiKey string
	http   *http.Client
	logger logging.Logger
}

// New builds a client for the given API key.
func New(ctx context.Context, apiKey string, logger logging.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini API key is required")
	}
	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client init: %w", err)
	}
	return &Client{
		api:    api,
		apiKey: apiKey,
		http:   &http.Client{Timeout: artifactHTTPTimeout},
		logger: logging.OrNop(logger),
	}, nil
}

// Generate handles the synchronous kinds: chat, image and face swap.
func (c *Client) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	switch req.Kind {
	case generation.KindChat:
		return c.chat(ctx, req)
	case generation.KindImage, generation.KindFaceSwap:
		return c.image(ctx, req)
	default:
		return nil, fmt.Errorf("kind %q is not a synchronous generation", req.Kind)
	}
}

func (c *Client) chat(ctx context.Context, req generation.Request) (*generation.Result, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Attachment != nil {
		parts = append(parts, inlinePart(req.Attachment))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(generation.SystemInstruction, genai.RoleUser),
	}
	if req.SearchGrounding {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := c.api.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, classify(err)
	}

	text := collectText(resp)
	text = appendGroundingSources(text, groundingChunks(resp))
	return &generation.Result{Text: text}, nil
}

func (c *Client) image(ctx context.Context, req generation.Request) (*generation.Result, error) {
	var parts []*genai.Part
	if req.Kind == generation.KindFaceSwap {
		// Attachment order is part of the contract: the instructional
		// template refers to image 1 (face) and image 2 (target).
		parts = append(parts, inlinePart(req.Face), inlinePart(req.Target))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	if req.Kind == generation.KindImage && req.Attachment != nil {
		parts = append(parts, inlinePart(req.Attachment))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{
			AspectRatio: req.Shape.AspectRatio,
			ImageSize:   req.Shape.ImageSize,
		},
	}

	resp, err := c.api.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, classify(err)
	}

	media := firstInlineImage(resp)
	if media == nil {
		return nil, &generation.EmptyResultError{Message: "model returned no image"}
	}
	return &generation.Result{Media: media}, nil
}

// SubmitVideo starts a video generation job and returns its handle.
func (c *Client) SubmitVideo(ctx context.Context, req generation.Request) (*generation.JobHandle, error) {
	var image *genai.Image
	if req.Attachment != nil {
		image = &genai.Image{
			ImageBytes: req.Attachment.Data,
			MIMEType:   req.Attachment.MIMEType,
		}
	}
	config := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     req.Shape.Resolution,
		AspectRatio:    req.Shape.AspectRatio,
	}

	op, err := c.api.Models.GenerateVideos(ctx, req.Model, req.Prompt, image, config)
	if err != nil {
		return nil, classify(err)
	}
	return handleFromOperation(op), nil
}

// PollVideo re-fetches the status of an in-flight operation.
func (c *Client) PollVideo(ctx context.Context, handle *generation.JobHandle) (*generation.JobHandle, error) {
	op, ok := handle.Raw.(*genai.GenerateVideosOperation)
	if !ok {
		return nil, fmt.Errorf("job handle %s does not carry a video operation", handle.ID)
	}
	refreshed, err := c.api.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return nil, classify(err)
	}
	return handleFromOperation(refreshed), nil
}

// FetchArtifact downloads the finished job's artifact. The artifact URI
// requires the active credential appended as a query key.
func (c *Client) FetchArtifact(ctx context.Context, uri string) (*generation.Media, error) {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+sep+"key="+c.apiKey, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d received while fetching artifact", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxArtifactBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxArtifactBytes {
		return nil, fmt.Errorf("artifact exceeds inline limit (%d bytes)", maxArtifactBytes)
	}

	mimeType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	c.logger.Debug("fetched artifact, %d bytes, %s", len(data), mimeType)
	return &generation.Media{MIMEType: mimeType, Data: data}, nil
}

func inlinePart(att *generation.Attachment) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{MIMEType: att.MIMEType, Data: att.Data}}
}

func handleFromOperation(op *genai.GenerateVideosOperation) *generation.JobHandle {
	handle := &generation.JobHandle{
		ID:   op.Name,
		Done: op.Done,
		Raw:  op,
	}
	if !op.Done {
		return handle
	}
	if len(op.Error) > 0 {
		if msg, ok := op.Error["message"].(string); ok && msg != "" {
			handle.FailureMessage = msg
		} else {
			handle.FailureMessage = fmt.Sprintf("%v", op.Error)
		}
		return handle
	}
	if op.Response != nil && len(op.Response.GeneratedVideos) > 0 {
		if video := op.Response.GeneratedVideos[0].Video; video != nil {
			handle.ArtifactURI = video.URI
		}
	}
	return handle
}

// classify wraps provider failures of the invalid-credential class so the
// retry wrapper can react; everything else passes through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if generation.IsAuthError(err) {
		return &generation.AuthError{Err: err}
	}
	return err
}
