package progress

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Update is one progress event streamed to the client over SSE.
type Update struct {
	Type    string `json:"type"` // "step", "deck" or "image"
	Step    string `json:"step,omitempty"`
	SlideID string `json:"slideId,omitempty"`
	Status  string `json:"status,omitempty"` // "done" or "failed" for images
	Message string `json:"message,omitempty"`
}

// Tracker keeps one buffered event channel per wizard session. Slow or
// absent SSE consumers never stall the state machine: updates are
// dropped when a channel is full.
type Tracker struct {
	channels map[string]chan string
	mu       sync.RWMutex
}

func NewTracker() *Tracker {
	return &Tracker{
		channels: make(map[string]chan string),
	}
}

func (t *Tracker) CreateChannel(id string) chan string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan string, 32)
	t.channels[id] = ch
	return ch
}

func (t *Tracker) GetChannel(id string) (chan string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ch, exists := t.channels[id]
	return ch, exists
}

func (t *Tracker) CloseChannel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ch, exists := t.channels[id]; exists {
		close(ch)
		delete(t.channels, id)
	}
}

func (t *Tracker) SendUpdate(id string, update Update) error {
	t.mu.RLock()
	ch, exists := t.channels[id]
	t.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no progress channel found for ID: %s", id)
	}

	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	select {
	case ch <- string(data):
	default:
		logrus.WithField("session", id).Debug("progress channel full, dropping update")
	}
	return nil
}
