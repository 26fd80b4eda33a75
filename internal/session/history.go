package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// History holds the in-memory message lists, one per mode, each seeded
// with a greeting row. Safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	messages map[Mode][]Message
}

// NewHistory seeds every mode with its greeting. userName personalizes the
// chat greeting; empty falls back to "User".
func NewHistory(userName string) *History {
	if userName == "" {
		userName = "User"
	}
	now := time.Now()
	greetings := map[Mode]string{
		ModeChat:     fmt.Sprintf("Hello %s! Gemini Chat is ready. I'm powered by Flash and Pro models.", userName),
		ModeImage:    "Nano Banana Pro image generation is ready. Describe anything!",
		ModeVideo:    "Veo 3 Cinema is online. Send a prompt to create video.",
		ModeFaceSwap: "Face Swap active. Upload a source face and a target image.",
	}

	messages := make(map[Mode][]Message, len(Modes))
	for _, mode := range Modes {
		messages[mode] = []Message{{
			ID:        uuid.NewString(),
			Type:      TypeText,
			Content:   greetings[mode],
			Sender:    SenderAI,
			Timestamp: now,
		}}
	}
	return &History{messages: messages}
}

// Append adds a message to the end of a mode's history.
func (h *History) Append(mode Mode, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages[mode] = append(h.messages[mode], msg)
}

// Replace swaps the message with the given id for its settled form.
// Returns false when the id is not present in the mode's history.
func (h *History) Replace(mode Mode, id string, msg Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.messages[mode]
	for i := range list {
		if list[i].ID == id {
			msg.ID = id
			list[i] = msg
			return true
		}
	}
	return false
}

// Snapshot returns a copy of a mode's history.
func (h *History) Snapshot(mode Mode) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := h.messages[mode]
	out := make([]Message, len(list))
	copy(out, list)
	return out
}
