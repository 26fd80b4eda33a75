// Package session owns the conversation state of the Mini App: per-mode
// histories, the generated-media cache and the orchestrator driving the
// generation pipeline.
package session

import (
	"fmt"
	"time"

	"nanobanana/internal/generation"
)

// Mode is one of the four conversation surfaces of the Mini App.
type Mode string

const (
	ModeChat     Mode = "chat"
	ModeImage    Mode = "image"
	ModeVideo    Mode = "video"
	ModeFaceSwap Mode = "faceswap"
)

// Modes lists every mode in sidebar order.
var Modes = []Mode{ModeChat, ModeImage, ModeVideo, ModeFaceSwap}

// ParseMode validates a mode string from the HTTP layer.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeChat, ModeImage, ModeVideo, ModeFaceSwap:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// MessageType tells the client how to render a message.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeVideo MessageType = "video"
)

// Sender distinguishes user rows from assistant rows.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Status tracks a message through the generation pipeline. User messages
// and greetings carry no status.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Message is one row of a mode's history. Media payloads are not inlined;
// MediaID addresses the media cache and the client fetches the bytes
// through the media endpoint.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Sender    Sender      `json:"sender"`
	Timestamp time.Time   `json:"timestamp"`
	Status    Status      `json:"status,omitempty"`
	MediaID   string      `json:"mediaId,omitempty"`

	// Attachments echoes the user's uploaded images back into the
	// history so the client can render them in the bubble.
	Attachments []*generation.Attachment `json:"attachments,omitempty"`
}
