package generation

import "strings"

// Kind selects one of the four operation kinds.
type Kind string

const (
	KindChat     Kind = "chat"
	KindImage    Kind = "image"
	KindFaceSwap Kind = "faceswap"
	KindVideo    Kind = "video"
)

// Model catalog. Chat offers a fast and a smart tier; the smart tier gets
// the grounded web-search capability. Face swap always runs on the pro
// image model, video on the fast Veo tier.
const (
	ChatModelFast  = "gemini-3-flash-preview"
	ChatModelSmart = "gemini-3-pro-preview"

	ImageModelPro  = "gemini-3-pro-image-preview"
	ImageModelFast = "gemini-2.5-flash-image"

	VideoModel     = "veo-3.1-generate-preview"
	VideoModelFast = "veo-3.1-fast-generate-preview"
)

// SystemInstruction is the fixed persona preamble attached to chat requests.
const SystemInstruction = "You are 'NANOBANANA PRO', a top-tier AI assistant. " +
	"You can browse the web, generate images and videos. Be helpful, concise, and professional."

// faceSwapTemplate names attachment 1 as the face source and attachment 2
// as the edit target; user text is appended after it.
const faceSwapTemplate = "Face Swap: Blend the face from image 1 onto the head of the person in image 2."

const defaultVideoPrompt = "Cinematic shot"

// Attachment is a binary payload plus its MIME type, carried inline.
// Immutable once created; may be shared between messages and requests.
type Attachment struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Shape carries response-shape hints for media kinds.
type Shape struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

// Request is the provider-agnostic request descriptor, tagged by Kind.
// Face-swap requests carry Face and Target; the other kinds carry at most
// one Attachment.
type Request struct {
	Kind       Kind
	Model      string
	Prompt     string
	Attachment *Attachment
	Face       *Attachment
	Target     *Attachment
	Shape      Shape
	// SearchGrounding enables the grounded web-search tool (smart chat
	// tier only).
	SearchGrounding bool
}

// smartTier reports whether a chat model id selects the smart tier.
func smartTier(model string) bool {
	return strings.Contains(model, "pro")
}

// NewChatRequest builds a chat request. The smart tier enables search
// grounding; the fast tier omits it.
func NewChatRequest(prompt, model string, attachment *Attachment) (Request, error) {
	if model == "" {
		model = ChatModelFast
	}
	if strings.TrimSpace(prompt) == "" && attachment == nil {
		return Request{}, &ValidationError{Field: "prompt", Message: "prompt text or an attachment is required"}
	}
	return Request{
		Kind:            KindChat,
		Model:           model,
		Prompt:          prompt,
		Attachment:      attachment,
		SearchGrounding: smartTier(model),
	}, nil
}

// NewImageRequest builds an image generation request with the default
// square 1K output unless shape overrides are given.
func NewImageRequest(prompt, model string, shape Shape) (Request, error) {
	if model == "" {
		model = ImageModelPro
	}
	if strings.TrimSpace(prompt) == "" {
		return Request{}, &ValidationError{Field: "prompt", Message: "prompt text is required"}
	}
	if shape.AspectRatio == "" {
		shape.AspectRatio = "1:1"
	}
	if shape.ImageSize == "" {
		shape.ImageSize = "1K"
	}
	return Request{
		Kind:   KindImage,
		Model:  model,
		Prompt: prompt,
		Shape:  shape,
	}, nil
}

// NewFaceSwapRequest builds a face-swap edit. Exactly two attachments are
// mandatory; prompt text is optional narrative on top of them. The output
// aspect ratio is forced square.
func NewFaceSwapRequest(face, target *Attachment, prompt string) (Request, error) {
	if face == nil {
		return Request{}, &ValidationError{Field: "face", Message: "face source attachment is required"}
	}
	if target == nil {
		return Request{}, &ValidationError{Field: "target", Message: "target image attachment is required"}
	}
	text := faceSwapTemplate
	if extra := strings.TrimSpace(prompt); extra != "" {
		text += " " + extra
	}
	return Request{
		Kind:   KindFaceSwap,
		Model:  ImageModelPro,
		Prompt: text,
		Face:   face,
		Target: target,
		Shape:  Shape{AspectRatio: "1:1"},
	}, nil
}

// NewVideoRequest builds a video generation request on the fast Veo tier.
// Output defaults to one 720p 16:9 clip.
func NewVideoRequest(prompt string, seedImage *Attachment, shape Shape) (Request, error) {
	if strings.TrimSpace(prompt) == "" && seedImage == nil {
		return Request{}, &ValidationError{Field: "prompt", Message: "prompt text or a seed image is required"}
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultVideoPrompt
	}
	if shape.AspectRatio == "" {
		shape.AspectRatio = "16:9"
	}
	if shape.Resolution == "" {
		shape.Resolution = "720p"
	}
	return Request{
		Kind:       KindVideo,
		Model:      VideoModelFast,
		Prompt:     prompt,
		Attachment: seedImage,
		Shape:      shape,
	}, nil
}
