package model

// WizardStep identifies one screen of the founder wizard. Navigation is
// gated by the state machine: a step is reachable only while it is the
// current step or has already been completed.
type WizardStep string

const (
	StepLanding  WizardStep = "LANDING"
	StepAuth     WizardStep = "AUTH"
	StepIdea     WizardStep = "IDEA"
	StepInsights WizardStep = "INSIGHTS"
	StepPitch    WizardStep = "PITCH"
	StepExport   WizardStep = "EXPORT"
)

// StepOrder lists all steps in presentation order.
var StepOrder = []WizardStep{StepLanding, StepAuth, StepIdea, StepInsights, StepPitch, StepExport}

func (s WizardStep) Valid() bool {
	for _, step := range StepOrder {
		if s == step {
			return true
		}
	}
	return false
}

// User is the identity emitted by the session source. The wizard only
// reads it and reacts to presence and verification changes.
type User struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

type MarketSize struct {
	TAM      float64 `json:"tam"`
	SAM      float64 `json:"sam"`
	SOM      float64 `json:"som"`
	Currency string  `json:"currency"`
	Unit     string  `json:"unit"`
}

type Competitor struct {
	Name     string `json:"name"`
	Weakness string `json:"weakness"`
}

type SwotAnalysis struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// MarketAnalysis is the structured result of analyzing a raw startup
// idea. It is immutable once produced; a new analysis replaces it
// wholesale.
type MarketAnalysis struct {
	Tagline          string       `json:"tagline"`
	ProblemSummary   string       `json:"problemSummary"`
	SolutionSummary  string       `json:"solutionSummary"`
	TargetAudience   []string     `json:"targetAudience"`
	Competitors      []Competitor `json:"competitors"`
	MarketSize       MarketSize   `json:"marketSize"`
	Swot             SwotAnalysis `json:"swot"`
	ValueProposition string       `json:"valueProposition"`
	RevenueModel     string       `json:"revenueModel"`
	GoToAction       string       `json:"goToAction"`
}

type SlideType string

const (
	SlideTitle         SlideType = "title"
	SlideProblem       SlideType = "problem"
	SlideSolution      SlideType = "solution"
	SlideMarket        SlideType = "market"
	SlideBusinessModel SlideType = "business_model"
	SlideTeam          SlideType = "team"
	SlideGeneric       SlideType = "generic"
)

type SlideLayout string

const (
	LayoutDefault      SlideLayout = "default"
	LayoutImageLeft    SlideLayout = "image_left"
	LayoutMinimal      SlideLayout = "minimal"
	LayoutContentHeavy SlideLayout = "content_heavy"
)

// Slide is one page of the pitch deck. The ID is stable across reorders
// and edits; all asynchronous image results are applied by ID.
type Slide struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Type           SlideType   `json:"type"`
	Content        []string    `json:"content"`
	VisualPrompt   string      `json:"visualPrompt"`
	SpeakerNotes   string      `json:"speakerNotes"`
	ImageURL       string      `json:"imageUrl,omitempty"`
	IsLoadingImage bool        `json:"isLoadingImage"`
	Layout         SlideLayout `json:"layout"`
}

// Clone returns a deep copy so snapshots never alias live state.
func (s Slide) Clone() Slide {
	out := s
	if s.Content != nil {
		out.Content = append([]string(nil), s.Content...)
	}
	return out
}

// PitchTheme styles the deck. Swapping themes never mutates slides.
type PitchTheme struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PrimaryColor string `json:"primaryColor"`
	AccentColor  string `json:"accentColor"`
	Font         string `json:"font"`
}

// DefaultTheme is the theme every new session starts with.
func DefaultTheme() PitchTheme {
	return PitchTheme{
		ID:           "blue",
		Name:         "Professional Blue",
		PrimaryColor: "#2563eb",
		AccentColor:  "#eff6ff",
		Font:         "Inter, sans-serif",
	}
}

// Themes returns the selectable theme catalog.
func Themes() []PitchTheme {
	return []PitchTheme{
		DefaultTheme(),
		{ID: "emerald", Name: "Emerald Growth", PrimaryColor: "#059669", AccentColor: "#ecfdf5", Font: "Inter, sans-serif"},
		{ID: "violet", Name: "Bold Violet", PrimaryColor: "#7c3aed", AccentColor: "#f5f3ff", Font: "Inter, sans-serif"},
		{ID: "slate", Name: "Minimal Slate", PrimaryColor: "#334155", AccentColor: "#f8fafc", Font: "Georgia, serif"},
	}
}

// ImageRef is a generated slide image: a base64 payload plus its MIME
// type, rendered to clients as a data URI.
type ImageRef struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

func (r ImageRef) DataURI() string {
	return "data:" + r.MimeType + ";base64," + r.Data
}
