package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"founderframe/internal/model"
)

func textResponse(text string) generateResponse {
	return generateResponse{
		Candidates: []struct {
			Content generateContentBlock `json:"content"`
		}{
			{Content: generateContentBlock{Parts: []generatePart{{Text: text}}}},
		},
	}
}

func imageResponse(mime, data string) generateResponse {
	return generateResponse{
		Candidates: []struct {
			Content generateContentBlock `json:"content"`
		}{
			{Content: generateContentBlock{Parts: []generatePart{{InlineData: &inlinePartData{MimeType: mime, Data: data}}}}},
		},
	}
}

func serveJSON(t *testing.T, v interface{}) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}
}

func clientFor(srv *httptest.Server) *Client {
	return NewClient(Config{BaseURL: srv.URL, APIKey: "test", MaxAttempts: 1}, nil)
}

var validAnalysisJSON = `{
	"tagline": "Walk more dogs",
	"problemSummary": "Owners lack time",
	"solutionSummary": "On-demand walkers",
	"targetAudience": ["urban dog owners"],
	"competitors": [{"name": "Rover", "weakness": "pricing"}],
	"marketSize": {"tam": 10, "sam": 2, "som": 0.5, "currency": "USD", "unit": "B"},
	"swot": {"strengths": ["speed"], "weaknesses": [], "opportunities": [], "threats": []},
	"valueProposition": "Happy dogs in minutes",
	"revenueModel": "commission",
	"goToAction": "launch in one city"
}`

func TestAnalyze_ParsesStructuredResponse(t *testing.T) {
	srv := httptest.NewServer(serveJSON(t, textResponse(validAnalysisJSON)))
	defer srv.Close()

	got, err := clientFor(srv).Analyze(context.Background(), "an app that walks dogs on demand")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if got.Tagline != "Walk more dogs" {
		t.Errorf("tagline = %q", got.Tagline)
	}
	if got.MarketSize.TAM != 10 || got.MarketSize.SAM != 2 || got.MarketSize.SOM != 0.5 {
		t.Errorf("market size = %+v", got.MarketSize)
	}
	if got.MarketSize.Currency != "USD" || got.MarketSize.Unit != "B" {
		t.Errorf("market size units = %+v", got.MarketSize)
	}
}

func TestAnalyze_StripsCodeFence(t *testing.T) {
	fenced := "```json\n" + validAnalysisJSON + "\n```"
	srv := httptest.NewServer(serveJSON(t, textResponse(fenced)))
	defer srv.Close()

	got, err := clientFor(srv).Analyze(context.Background(), "an app that walks dogs on demand")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if got.Tagline != "Walk more dogs" {
		t.Errorf("tagline = %q", got.Tagline)
	}
}

func TestAnalyze_MissingRequiredFieldIsMalformed(t *testing.T) {
	srv := httptest.NewServer(serveJSON(t, textResponse(`{"tagline": "only a tagline"}`)))
	defer srv.Close()

	_, err := clientFor(srv).Analyze(context.Background(), "an app that walks dogs on demand")
	if Classify(err) != KindMalformed {
		t.Errorf("err = %v, want malformed classification", err)
	}
}

func TestAnalyze_QuotaStatusClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := clientFor(srv).Analyze(context.Background(), "an app that walks dogs on demand")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Kind != KindQuota || apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("apiErr = %+v, want quota kind with status 429", apiErr)
	}
}

func TestGenerateDeck_DefaultsLayoutAndFillsIDs(t *testing.T) {
	deckJSON := `[
		{"id": "slide-1", "title": "Title", "type": "title", "content": ["hook"], "visualPrompt": "a rocket", "layout": "image_left", "imageUrl": "https://stale.example/cached.png", "isLoadingImage": true},
		{"title": "Problem", "type": "problem", "content": ["pain"], "visualPrompt": "a wall"}
	]`
	srv := httptest.NewServer(serveJSON(t, textResponse(deckJSON)))
	defer srv.Close()

	analysis := &model.MarketAnalysis{Tagline: "t"}
	slides, err := clientFor(srv).GenerateDeck(context.Background(), analysis)
	if err != nil {
		t.Fatalf("GenerateDeck failed: %v", err)
	}
	if len(slides) != 2 {
		t.Fatalf("len(slides) = %d, want 2", len(slides))
	}

	for i, s := range slides {
		if s.Layout != model.LayoutDefault {
			t.Errorf("slide %d: layout = %q, want default (backend never supplies layouts)", i, s.Layout)
		}
		if s.ImageURL != "" || s.IsLoadingImage {
			t.Errorf("slide %d: image state not reset: url=%q loading=%v", i, s.ImageURL, s.IsLoadingImage)
		}
		if s.ID == "" {
			t.Errorf("slide %d: missing id was not filled", i)
		}
	}
	if slides[0].ID != "slide-1" {
		t.Errorf("existing id was replaced: %q", slides[0].ID)
	}
}

func TestGenerateDeck_EmptyDeckIsMalformed(t *testing.T) {
	srv := httptest.NewServer(serveJSON(t, textResponse(`[]`)))
	defer srv.Close()

	_, err := clientFor(srv).GenerateDeck(context.Background(), &model.MarketAnalysis{})
	if Classify(err) != KindMalformed {
		t.Errorf("err = %v, want malformed classification", err)
	}
}

func TestGenerateImage_ReturnsInlineData(t *testing.T) {
	srv := httptest.NewServer(serveJSON(t, imageResponse("image/png", "aGVsbG8=")))
	defer srv.Close()

	ref, err := clientFor(srv).GenerateImage(context.Background(), "a rocket over a city")
	if err != nil {
		t.Fatalf("GenerateImage failed: %v", err)
	}
	if ref.MimeType != "image/png" || ref.Data != "aGVsbG8=" {
		t.Errorf("ref = %+v", ref)
	}
	if ref.DataURI() != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("DataURI = %q", ref.DataURI())
	}
}

func TestGenerateImage_TextInsteadOfImageIsMalformed(t *testing.T) {
	srv := httptest.NewServer(serveJSON(t, textResponse("I cannot draw that")))
	defer srv.Close()

	_, err := clientFor(srv).GenerateImage(context.Background(), "a rocket")
	if Classify(err) != KindMalformed {
		t.Errorf("err = %v, want malformed classification", err)
	}
}

func TestGenerateImage_NoCandidatesIsMalformed(t *testing.T) {
	srv := httptest.NewServer(serveJSON(t, generateResponse{}))
	defer srv.Close()

	_, err := clientFor(srv).GenerateImage(context.Background(), "a rocket")
	if Classify(err) != KindMalformed {
		t.Errorf("err = %v, want malformed classification", err)
	}
}

func TestCleanJSONContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fence with preamble", "Here you go:\n```json\n{\"a\":1}\n```\nEnjoy!", `{"a":1}`},
		{"single backtick line untouched", "```json\n{\"a\":1}", "```json\n{\"a\":1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJSONContent(tt.in); got != tt.want {
				t.Errorf("cleanJSONContent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
