package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"founderframe/internal/export"
	"founderframe/internal/fanout"
	"founderframe/internal/model"
	"founderframe/internal/progress"
	"founderframe/internal/wizard"
)

type stubGen struct{}

func (stubGen) Analyze(ctx context.Context, idea string) (*model.MarketAnalysis, error) {
	return &model.MarketAnalysis{
		Tagline:          "Walk more dogs",
		ProblemSummary:   "Owners lack time",
		SolutionSummary:  "On-demand walkers",
		TargetAudience:   []string{"urban dog owners"},
		MarketSize:       model.MarketSize{TAM: 10, SAM: 2, SOM: 0.5, Currency: "USD", Unit: "B"},
		ValueProposition: "Happy dogs in minutes",
	}, nil
}

func (stubGen) GenerateDeck(ctx context.Context, analysis *model.MarketAnalysis) ([]model.Slide, error) {
	return []model.Slide{
		{ID: "slide-1", Title: "Title", Type: model.SlideTitle, VisualPrompt: "p1"},
		{ID: "slide-2", Title: "Problem", Type: model.SlideProblem, VisualPrompt: "p2"},
		{ID: "slide-3", Title: "Solution", Type: model.SlideSolution, VisualPrompt: "p3"},
	}, nil
}

func (stubGen) GenerateImage(ctx context.Context, prompt string) (*model.ImageRef, error) {
	return &model.ImageRef{MimeType: "image/png", Data: "img"}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *progress.Tracker) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gen := stubGen{}
	runner := fanout.NewRunner(gen, 8, time.Millisecond)
	tracker := progress.NewTracker()
	store := wizard.NewStore(func(id string) *wizard.Machine {
		return wizard.NewMachine(id, gen, runner, nil, tracker, nil, wizard.Config{HasCredential: true})
	}, tracker.CloseChannel)

	h := NewWizardHandler(store, tracker, export.NewService(nil))
	r := gin.New()
	h.Register(r.Group("/api"))
	return r, tracker
}

func doJSON(t *testing.T, r *gin.Engine, method, path, sessionID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) wizard.View {
	t.Helper()
	var v wizard.View
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view: %v (body: %s)", err, w.Body.String())
	}
	return v
}

func createSession(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/sessions", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("create session: status = %d, body = %s", w.Code, w.Body.String())
	}
	v := decodeView(t, w)
	if v.SessionID == "" {
		t.Fatal("create session returned no session id")
	}
	return v.SessionID
}

// advanceToPitch drives a session through start, analyze and pitch.
func advanceToPitch(t *testing.T, r *gin.Engine, id string) wizard.View {
	t.Helper()
	doJSON(t, r, http.MethodPost, "/api/wizard/start", id, nil)
	w := doJSON(t, r, http.MethodPost, "/api/wizard/analyze", id, gin.H{"idea": "an app that walks dogs on demand"})
	if w.Code != http.StatusOK {
		t.Fatalf("analyze: status = %d, body = %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/api/wizard/pitch", id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pitch: status = %d, body = %s", w.Code, w.Body.String())
	}
	return decodeView(t, w)
}

func TestWizardFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/wizard/start", id, nil)
	if v := decodeView(t, w); v.Step != model.StepIdea {
		t.Errorf("step after start = %q, want %q", v.Step, model.StepIdea)
	}

	w = doJSON(t, r, http.MethodPost, "/api/wizard/analyze", id, gin.H{"idea": "an app that walks dogs on demand"})
	v := decodeView(t, w)
	if v.Step != model.StepInsights {
		t.Errorf("step after analyze = %q, want %q", v.Step, model.StepInsights)
	}
	if v.Analysis == nil || v.Analysis.Tagline != "Walk more dogs" {
		t.Errorf("analysis = %+v", v.Analysis)
	}

	w = doJSON(t, r, http.MethodPost, "/api/wizard/pitch", id, nil)
	v = decodeView(t, w)
	if v.Step != model.StepPitch {
		t.Errorf("step after pitch = %q, want %q", v.Step, model.StepPitch)
	}
	if len(v.Deck) != 3 {
		t.Errorf("deck size = %d, want 3", len(v.Deck))
	}
}

func TestAnalyze_ShortIdeaIs400(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)
	doJSON(t, r, http.MethodPost, "/api/wizard/start", id, nil)

	w := doJSON(t, r, http.MethodPost, "/api/wizard/analyze", id, gin.H{"idea": "short"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMissingSessionHeader(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/wizard", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/wizard", "no-such-session", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteSlide_ConfirmationGate(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)
	advanceToPitch(t, r, id)

	// confirm=false aborts with no mutation.
	w := doJSON(t, r, http.MethodPost, "/api/wizard/slides/delete", id, gin.H{"index": 0, "confirm": false})
	if v := decodeView(t, w); len(v.Deck) != 3 {
		t.Errorf("deck size after aborted delete = %d, want 3", len(v.Deck))
	}

	w = doJSON(t, r, http.MethodPost, "/api/wizard/slides/delete", id, gin.H{"index": 0, "confirm": true})
	if v := decodeView(t, w); len(v.Deck) != 2 {
		t.Errorf("deck size after delete = %d, want 2", len(v.Deck))
	}
}

func TestUpdateSlide(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)
	advanceToPitch(t, r, id)

	w := doJSON(t, r, http.MethodPatch, "/api/wizard/slides/slide-2", id, gin.H{"title": "Renamed"})
	v := decodeView(t, w)
	for _, s := range v.Deck {
		if s.ID == "slide-2" && s.Title != "Renamed" {
			t.Errorf("title = %q, want %q", s.Title, "Renamed")
		}
	}
}

func TestMoveSlide(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)
	advanceToPitch(t, r, id)

	w := doJSON(t, r, http.MethodPost, "/api/wizard/slides/move", id, gin.H{"index": 0, "direction": "down"})
	v := decodeView(t, w)
	if v.Deck[0].ID != "slide-2" || v.Deck[1].ID != "slide-1" {
		t.Errorf("order = [%s %s ...], want slide-2 first", v.Deck[0].ID, v.Deck[1].ID)
	}
}

func TestSetTheme(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/wizard/theme", id, gin.H{"id": "violet"})
	if v := decodeView(t, w); v.Theme.ID != "violet" {
		t.Errorf("theme = %q, want violet", v.Theme.ID)
	}

	w = doJSON(t, r, http.MethodPost, "/api/wizard/theme", id, gin.H{"id": "nonsense"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown theme: status = %d, want 400", w.Code)
	}
}

func TestExport_NoStoreStillSucceeds(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)
	advanceToPitch(t, r, id)

	w := doJSON(t, r, http.MethodPost, "/api/wizard/export", id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		View        wizard.View `json:"view"`
		ArtifactURL string      `json:"artifactUrl"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.View.Step != model.StepExport {
		t.Errorf("step = %q, want %q", resp.View.Step, model.StepExport)
	}
	if resp.ArtifactURL != "" {
		t.Errorf("artifactUrl = %q, want empty without a store", resp.ArtifactURL)
	}
}

func TestDismiss_UnknownTargetIs400(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/wizard/dismiss", id, gin.H{"target": "banner"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestProgress_UnknownSessionIs404(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/progress/no-such-session", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
