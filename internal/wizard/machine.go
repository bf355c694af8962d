package wizard

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"founderframe/internal/deck"
	"founderframe/internal/fanout"
	"founderframe/internal/genai"
	"founderframe/internal/model"
	"founderframe/internal/overlay"
	"founderframe/internal/progress"
)

const minIdeaLength = 10

// Generator is the remote generation backend as the machine sees it.
type Generator interface {
	Analyze(ctx context.Context, idea string) (*model.MarketAnalysis, error)
	GenerateDeck(ctx context.Context, analysis *model.MarketAnalysis) ([]model.Slide, error)
	GenerateImage(ctx context.Context, prompt string) (*model.ImageRef, error)
}

// CredentialPicker is an optional host capability for interactive API
// key selection. A nil picker means the capability is absent and
// credential failures surface as configuration errors instead.
type CredentialPicker interface {
	Open(ctx context.Context) error
}

// ImageRecorder counts fan-out image outcomes. May be nil.
type ImageRecorder interface {
	RecordImage(outcome string)
}

// Config tunes a machine's gating behavior.
type Config struct {
	// RequireAuth redirects "get started" to the auth step for
	// anonymous visitors.
	RequireAuth bool
	// HasCredential is true when the deployment ships its own
	// generation API key; when false and a picker is available, "get
	// started" redirects to key selection instead of advancing.
	HasCredential bool
}

// State is the serializable wizard state. Snapshots are deep copies;
// callers never observe live mutable references.
type State struct {
	Step                 model.WizardStep      `json:"step"`
	CompletedSteps       []model.WizardStep    `json:"completedSteps"`
	IdeaRaw              string                `json:"ideaRaw"`
	IsAnalyzing          bool                  `json:"isAnalyzing"`
	Analysis             *model.MarketAnalysis `json:"analysis,omitempty"`
	IsGeneratingPitch    bool                  `json:"isGeneratingPitch"`
	Theme                model.PitchTheme      `json:"theme"`
	User                 *model.User           `json:"user,omitempty"`
	QuotaExceeded        bool                  `json:"quotaExceeded"`
	MissingCredential    bool                  `json:"missingCredential"`
	ConfigurationError   bool                  `json:"configurationError"`
	AwaitingKeySelection bool                  `json:"awaitingKeySelection"`
	Toast                string                `json:"toast,omitempty"`
	ScrollEpoch          int                   `json:"scrollEpoch"`
}

// View is the client-facing projection of a session: state, deck and
// the single derived blocking overlay. The toast is suppressed while a
// blocking overlay is active.
type View struct {
	SessionID string        `json:"sessionId"`
	State
	Deck    []model.Slide `json:"deck"`
	Overlay overlay.Kind  `json:"overlay,omitempty"`
}

// Machine is one wizard session: current step, completion set, the
// top-level idea/analysis/deck/theme state, and the sequencing of
// generation calls. All mutation happens under one mutex as a pure
// transform of the latest published state.
type Machine struct {
	id      string
	mu      sync.Mutex
	gen     Generator
	deck    *deck.Manager
	runner  *fanout.Runner
	picker  CredentialPicker
	tracker *progress.Tracker
	rec     ImageRecorder
	cfg     Config

	step        model.WizardStep
	completed   map[model.WizardStep]bool
	ideaRaw     string
	isAnalyzing bool
	analysis    *model.MarketAnalysis
	isBuilding  bool
	theme       model.PitchTheme
	user        *model.User

	quotaExceeded      bool
	missingCredential  bool
	configurationError bool
	awaitingKey        bool
	toast              string
	scrollEpoch        int
}

// NewMachine builds a session machine starting at the landing step.
func NewMachine(id string, gen Generator, runner *fanout.Runner, picker CredentialPicker, tracker *progress.Tracker, rec ImageRecorder, cfg Config) *Machine {
	return &Machine{
		id:        id,
		gen:       gen,
		deck:      deck.NewManager(),
		runner:    runner,
		picker:    picker,
		tracker:   tracker,
		rec:       rec,
		cfg:       cfg,
		step:      model.StepLanding,
		completed: make(map[model.WizardStep]bool),
		theme:     model.DefaultTheme(),
	}
}

func (m *Machine) ID() string { return m.id }

// Deck returns a snapshot of the slides.
func (m *Machine) Deck() []model.Slide { return m.deck.Slides() }

// setStep changes the current step and synchronously bumps the scroll
// epoch; views reset their scroll position on every epoch change, even
// when re-entering the same step.
func (m *Machine) setStep(step model.WizardStep) {
	m.step = step
	m.scrollEpoch++
	m.notify(progress.Update{Type: "step", Step: string(step)})
}

func (m *Machine) markCompleted(step model.WizardStep) {
	m.completed[step] = true
}

func (m *Machine) notify(u progress.Update) {
	if m.tracker != nil {
		_ = m.tracker.SendUpdate(m.id, u)
	}
}

// GetStarted handles the landing page call to action. Anonymous
// visitors are routed to auth when the deployment requires it. When no
// generation credential is configured and a key picker capability
// exists, the user is redirected there and the step does not change;
// the selection outcome is unconfirmed and reconciled on next use.
func (m *Machine) GetStarted(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.RequireAuth && m.user == nil {
		m.setStep(model.StepAuth)
		return
	}
	if !m.cfg.HasCredential && !m.awaitingKey && m.picker != nil {
		if err := m.picker.Open(ctx); err != nil {
			logrus.WithField("session", m.id).Warnf("credential picker failed to open: %v", err)
			return
		}
		m.awaitingKey = true
		return
	}
	m.setStep(model.StepIdea)
}

// AnalyzeIdea runs the idea through market analysis. On success the
// idea step completes and the wizard advances to insights; on failure
// the step is unchanged and the error is classified into overlay state.
func (m *Machine) AnalyzeIdea(ctx context.Context, idea string) error {
	idea = strings.TrimSpace(idea)
	if len(idea) < minIdeaLength {
		return model.NewValidationError("please describe your idea in at least 10 characters")
	}

	m.mu.Lock()
	if m.isAnalyzing {
		m.mu.Unlock()
		return model.NewValidationError("analysis already in progress")
	}
	m.isAnalyzing = true
	m.ideaRaw = idea
	m.toast = ""
	m.mu.Unlock()

	analysis, err := m.gen.Analyze(ctx, idea)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.isAnalyzing = false
	if err != nil {
		m.recordFailureLocked(err)
		return err
	}

	m.analysis = analysis
	m.awaitingKey = false
	m.markCompleted(model.StepIdea)
	m.setStep(model.StepInsights)
	return nil
}

// BuildPitch generates the deck from the current analysis. The wizard
// advances to the pitch step as soon as the slide structure exists; the
// per-slide image fan-out runs in the background and is observable only
// through each slide's loading flag.
func (m *Machine) BuildPitch(ctx context.Context) error {
	m.mu.Lock()
	if m.analysis == nil {
		m.mu.Unlock()
		return model.NewValidationError("no analysis available yet")
	}
	if m.isBuilding {
		m.mu.Unlock()
		return model.NewValidationError("pitch generation already in progress")
	}
	m.isBuilding = true
	m.toast = ""
	analysis := *m.analysis
	m.mu.Unlock()

	slides, err := m.gen.GenerateDeck(ctx, &analysis)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.isBuilding = false
	if err != nil {
		m.recordFailureLocked(err)
		return err
	}

	m.deck.Initialize(slides)
	m.markCompleted(model.StepInsights)
	m.setStep(model.StepPitch)
	m.notify(progress.Update{Type: "deck", Message: "deck ready"})

	epoch := m.runner.Begin()
	reqs := make([]fanout.Request, 0, len(slides))
	for _, s := range m.deck.Slides() {
		reqs = append(reqs, fanout.Request{SlideID: s.ID, Prompt: s.VisualPrompt})
	}
	// Not awaited: the fan-out keeps updating slides after this call
	// returns, and even after the user navigates elsewhere.
	go m.runner.Run(context.Background(), epoch, reqs, m.applyImage)
	return nil
}

// applyImage is the fan-out sink. Failures only clear that slide's
// loading flag; they never escalate to a blocking overlay.
func (m *Machine) applyImage(slideID string, ref *model.ImageRef) {
	m.deck.SetImageResult(slideID, ref)

	status := "done"
	outcome := "success"
	if ref == nil {
		status = "failed"
		outcome = "failure"
	}
	if m.rec != nil {
		m.rec.RecordImage(outcome)
	}
	m.notify(progress.Update{Type: "image", SlideID: slideID, Status: status})
}

// RegenerateImage re-renders one slide's illustration on explicit user
// request, outside any running fan-out. Requests are serialized per
// slide: while one is in flight, another is rejected.
func (m *Machine) RegenerateImage(ctx context.Context, slideID, prompt string) error {
	m.mu.Lock()
	slide, ok := m.deck.Get(slideID)
	if !ok {
		m.mu.Unlock()
		return model.NewValidationError("slide not found")
	}
	if slide.IsLoadingImage {
		m.mu.Unlock()
		return model.NewValidationError("an image is already being generated for this slide")
	}
	if prompt == "" {
		prompt = slide.VisualPrompt
	}
	m.deck.MarkLoading(slideID)
	m.toast = ""
	m.mu.Unlock()

	ref, err := m.gen.GenerateImage(ctx, prompt)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyImage(slideID, ref)
	if err != nil {
		m.recordFailureLocked(err)
		return err
	}
	return nil
}

// UpdateSlide merges a partial edit; unknown ids are a silent no-op.
func (m *Machine) UpdateSlide(slideID string, patch deck.SlidePatch) {
	m.deck.Update(slideID, patch)
}

// MoveSlide swaps a slide with its neighbor; boundary moves are no-ops.
func (m *Machine) MoveSlide(index int, direction deck.Direction) {
	m.deck.Reorder(index, direction)
}

// DeleteSlide removes a slide behind the confirmation gate. The last
// slide can never be deleted.
func (m *Machine) DeleteSlide(index int, confirm deck.ConfirmFunc) error {
	return m.deck.Delete(index, confirm)
}

// SetTheme swaps the active theme without touching slides.
func (m *Machine) SetTheme(theme model.PitchTheme) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.theme = theme
}

// ExportClick marks the pitch step complete and opens the export step.
// Completion has no async dependency here.
func (m *Machine) ExportClick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markCompleted(model.StepPitch)
	m.setStep(model.StepExport)
}

// BackToPitch returns from the export step.
func (m *Machine) BackToPitch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step == model.StepExport {
		m.setStep(model.StepPitch)
	}
}

// NavigateTo jumps via the step indicator. Only the current step and
// completed steps are reachable; anything else is silently rejected.
// Re-entering the current step still bumps the scroll epoch.
func (m *Machine) NavigateTo(step model.WizardStep) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !step.Valid() {
		return
	}
	if step == m.step || m.completed[step] {
		m.setStep(step)
	}
}

// SetUser feeds the latest session source emission into the machine.
// It handles sign-in (auth step advances), sign-out (collapse to
// landing, deck and analysis cleared, theme and gating flags kept) and
// verification flips (picked up by the derived overlay).
func (m *Machine) SetUser(user *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.user
	m.user = user

	switch {
	case user == nil && prev != nil:
		m.signOutLocked()
	case user != nil && prev == nil && m.step == model.StepAuth:
		m.setStep(model.StepIdea)
	}
}

func (m *Machine) signOutLocked() {
	m.ideaRaw = ""
	m.analysis = nil
	m.isAnalyzing = false
	m.isBuilding = false
	m.deck.Reset()
	m.runner.Begin() // invalidate any in-flight fan-out
	m.setStep(model.StepLanding)
}

// DismissOverlay clears the dismissible error overlays. Verification
// pending is not dismissible; it resolves by verifying the email.
func (m *Machine) DismissOverlay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotaExceeded = false
	m.missingCredential = false
	m.configurationError = false
}

// DismissToast clears the transient message. Toasts never auto-clear.
func (m *Machine) DismissToast() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toast = ""
}

// recordFailureLocked folds a classified remote failure into overlay
// state. Quota and credential failures block; everything else becomes a
// toast. Held separate from the in-flight flags, which every operation
// clears on its own.
func (m *Machine) recordFailureLocked(err error) {
	switch genai.Classify(err) {
	case genai.KindQuota:
		m.quotaExceeded = true
	case genai.KindCredential:
		if m.picker != nil {
			m.missingCredential = true
			m.awaitingKey = false
		} else {
			m.configurationError = true
		}
	default:
		m.toast = err.Error()
	}
}

// Overlay derives the single blocking overlay for the current state.
func (m *Machine) Overlay() overlay.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlayLocked()
}

func (m *Machine) overlayLocked() overlay.Kind {
	return overlay.Select(overlay.Flags{
		VerificationPending: m.user != nil && !m.user.EmailVerified,
		QuotaExceeded:       m.quotaExceeded,
		MissingCredential:   m.missingCredential,
		ConfigurationError:  m.configurationError,
		Step:                m.step,
	})
}

// Snapshot returns a deep copy of the wizard state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() State {
	st := State{
		Step:                 m.step,
		CompletedSteps:       make([]model.WizardStep, 0, len(m.completed)),
		IdeaRaw:              m.ideaRaw,
		IsAnalyzing:          m.isAnalyzing,
		IsGeneratingPitch:    m.isBuilding,
		Theme:                m.theme,
		QuotaExceeded:        m.quotaExceeded,
		MissingCredential:    m.missingCredential,
		ConfigurationError:   m.configurationError,
		AwaitingKeySelection: m.awaitingKey,
		Toast:                m.toast,
		ScrollEpoch:          m.scrollEpoch,
	}
	for _, step := range model.StepOrder {
		if m.completed[step] {
			st.CompletedSteps = append(st.CompletedSteps, step)
		}
	}
	if m.analysis != nil {
		a := *m.analysis
		st.Analysis = &a
	}
	if m.user != nil {
		u := *m.user
		st.User = &u
	}
	return st
}

// View assembles the full client projection. The toast rides along only
// while no blocking overlay is active.
func (m *Machine) View() View {
	m.mu.Lock()
	st := m.snapshotLocked()
	ov := m.overlayLocked()
	m.mu.Unlock()

	if ov != overlay.None {
		st.Toast = ""
	}
	return View{
		SessionID: m.id,
		State:     st,
		Deck:      m.deck.Slides(),
		Overlay:   ov,
	}
}
