package deck

import (
	"sync"

	"founderframe/internal/model"
)

// Direction of a slide reorder.
type Direction string

const (
	MoveUp   Direction = "up"
	MoveDown Direction = "down"
)

// ConfirmFunc is the external confirmation gate consulted before a
// destructive deletion. Returning false aborts with no mutation.
type ConfirmFunc func(prompt string) bool

// SlidePatch is a partial slide edit. Nil fields are left untouched.
// Image state is never part of a patch; it is owned by SetImageResult.
type SlidePatch struct {
	Title        *string
	Content      *[]string
	VisualPrompt *string
	SpeakerNotes *string
	Layout       *model.SlideLayout
}

// Manager owns the ordered slide list and its per-slide async image
// state. All asynchronous results are applied by slide id, so
// out-of-order completion of concurrent requests is safe.
type Manager struct {
	mu     sync.RWMutex
	slides []model.Slide
}

func NewManager() *Manager {
	return &Manager{}
}

// Initialize replaces the deck wholesale and marks every slide as
// waiting for an image, the precondition for the generation fan-out.
func (m *Manager) Initialize(slides []model.Slide) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.slides = make([]model.Slide, 0, len(slides))
	for _, s := range slides {
		clone := s.Clone()
		clone.IsLoadingImage = true
		if clone.Layout == "" {
			clone.Layout = model.LayoutDefault
		}
		m.slides = append(m.slides, clone)
	}
}

// Reset drops all slides, used when a session signs out.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slides = nil
}

// Slides returns a deep copy of the deck in presentation order.
func (m *Manager) Slides() []model.Slide {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Slide, 0, len(m.slides))
	for _, s := range m.slides {
		out = append(out, s.Clone())
	}
	return out
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slides)
}

// Get returns a copy of the slide with the given id.
func (m *Manager) Get(id string) (model.Slide, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.slides {
		if s.ID == id {
			return s.Clone(), true
		}
	}
	return model.Slide{}, false
}

// Update merges a partial edit into the slide with the given id.
// Unknown ids are a no-op. ImageURL and the loading flag are untouched.
func (m *Manager) Update(id string, patch SlidePatch) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.slides {
		if m.slides[i].ID != id {
			continue
		}
		if patch.Title != nil {
			m.slides[i].Title = *patch.Title
		}
		if patch.Content != nil {
			m.slides[i].Content = append([]string(nil), (*patch.Content)...)
		}
		if patch.VisualPrompt != nil {
			m.slides[i].VisualPrompt = *patch.VisualPrompt
		}
		if patch.SpeakerNotes != nil {
			m.slides[i].SpeakerNotes = *patch.SpeakerNotes
		}
		if patch.Layout != nil {
			m.slides[i].Layout = *patch.Layout
		}
		return true
	}
	return false
}

// Reorder swaps the slide at index with its immediate neighbor. Moving
// the first slide up or the last slide down is a no-op. Only positions
// change; ids and content are unaffected.
func (m *Manager) Reorder(index int, direction Direction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch direction {
	case MoveUp:
		if index <= 0 || index >= len(m.slides) {
			return false
		}
		m.slides[index], m.slides[index-1] = m.slides[index-1], m.slides[index]
	case MoveDown:
		if index < 0 || index >= len(m.slides)-1 {
			return false
		}
		m.slides[index], m.slides[index+1] = m.slides[index+1], m.slides[index]
	default:
		return false
	}
	return true
}

// Delete removes the slide at index after the confirmation gate
// approves. A deck never shrinks below one slide.
func (m *Manager) Delete(index int, confirm ConfirmFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.slides) <= 1 {
		return model.NewValidationError("you must have at least one slide")
	}
	if index < 0 || index >= len(m.slides) {
		return model.NewValidationError("slide index out of range")
	}
	if confirm != nil && !confirm("Are you sure you want to delete this slide?") {
		return nil
	}

	m.slides = append(m.slides[:index], m.slides[index+1:]...)
	return nil
}

// MarkLoading flags a slide as having an image request in flight.
func (m *Manager) MarkLoading(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.slides {
		if m.slides[i].ID == id {
			m.slides[i].IsLoadingImage = true
			return true
		}
	}
	return false
}

// SetImageResult applies the terminal outcome of an image request.
// Success stores the image and clears the loading flag; failure (nil
// ref) only clears the flag, so a failed regeneration never erases a
// previously generated image. Unknown ids are a no-op, which makes
// stale completions after a deck replacement harmless.
func (m *Manager) SetImageResult(id string, ref *model.ImageRef) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.slides {
		if m.slides[i].ID != id {
			continue
		}
		if ref != nil {
			m.slides[i].ImageURL = ref.DataURI()
		}
		m.slides[i].IsLoadingImage = false
		return
	}
}
