// Package export builds the immutable snapshot handed to export
// collaborators. The concrete PDF and raster encoders consume this
// snapshot externally; the core only guarantees deck order.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"founderframe/internal/model"
)

// ErrNoStore means no artifact store is configured; export completes
// without producing a shareable URL.
var ErrNoStore = errors.New("no artifact store configured")

// Snapshot is the frozen deck state consumed by export collaborators.
type Snapshot struct {
	ExportedAt time.Time             `json:"exportedAt"`
	Analysis   *model.MarketAnalysis `json:"analysis,omitempty"`
	Theme      model.PitchTheme      `json:"theme"`
	Slides     []model.Slide         `json:"slides"`
}

// ArtifactStore persists a serialized snapshot and returns a URL.
type ArtifactStore interface {
	UploadJSON(name string, data []byte) (string, error)
}

// Service serializes snapshots and hands them to the artifact store.
type Service struct {
	store ArtifactStore
}

// NewService builds the export service. store may be nil when the
// deployment has no storage configured.
func NewService(store ArtifactStore) *Service {
	return &Service{store: store}
}

// Export uploads the snapshot as a JSON artifact under the session's
// prefix and returns the public URL.
func (s *Service) Export(sessionID string, snap Snapshot) (string, error) {
	if s.store == nil {
		return "", ErrNoStore
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	name := fmt.Sprintf("exports/%s/%s.json", sessionID, uuid.New().String())
	url, err := s.store.UploadJSON(name, data)
	if err != nil {
		return "", err
	}
	return url, nil
}
