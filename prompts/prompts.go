package prompts

import (
	"bytes"
	"fmt"
	"text/template"
)

// Templates for the three generation calls
const (
	// Template for the market analysis prompt
	analysisTemplate = `Analyze the following startup idea acting as a top-tier venture capitalist and strategist.
Provide a structured market analysis including a SWOT analysis. Be realistic, critical, yet constructive.
Estimate market sizes (TAM/SAM/SOM) based on the industry sector.

Startup Idea: "{{.Idea}}"

Respond with a single JSON object using exactly these fields:
- tagline: a punchy 5-10 word slogan
- problemSummary: clear definition of the pain point
- solutionSummary: how the product solves the problem
- targetAudience: array of audience segments
- competitors: array of objects with "name" and "weakness" (why this competitor is vulnerable)
- marketSize: object with numeric "tam", "sam", "som", plus "currency" (e.g. "$") and "unit" (e.g. "Billion")
- swot: object with "strengths", "weaknesses", "opportunities", "threats" arrays
- valueProposition: the unique selling point
- revenueModel: how the business makes money
- goToAction: immediate next strategic step

Return only the JSON object, no surrounding prose.`

	// Template for the pitch deck generation prompt
	deckTemplate = `Create a professional 8-10 slide pitch deck based on this market analysis.
The tone should be persuasive, clear, and investor-ready.
Keep content concise, impactful, and avoid 'walls of text'.

Market Analysis Context:
{{.Analysis}}

Respond with a JSON array of slide objects using exactly these fields:
- id: short unique identifier
- title: slide headline
- type: one of "title", "problem", "solution", "market", "business_model", "team", "generic"
- content: array of 3-5 bullet points
- visualPrompt: description of a visual to accompany the slide
- speakerNotes: script for the presenter

Return only the JSON array, no surrounding prose.`

	// Template for the slide illustration prompt
	imageTemplate = `Create a professional, high-quality, modern flat-vector illustration suitable for a startup pitch deck.
The image should visualize: "{{.Visual}}".
Style: Corporate Memphis, minimalist, clean lines, flat design, vibrant but professional colors, white background, high definition, vector graphics, abstract geometric shapes.
Do not include text or words in the image.`
)

// AnalysisPrompt builds the market analysis prompt for a raw idea.
func AnalysisPrompt(idea string) (string, error) {
	return render("analysisPrompt", analysisTemplate, struct{ Idea string }{Idea: idea})
}

// DeckPrompt builds the pitch deck prompt from a serialized analysis.
func DeckPrompt(analysisJSON string) (string, error) {
	return render("deckPrompt", deckTemplate, struct{ Analysis string }{Analysis: analysisJSON})
}

// ImagePrompt wraps a slide's visual description in the house style.
func ImagePrompt(visual string) (string, error) {
	return render("imagePrompt", imageTemplate, struct{ Visual string }{Visual: visual})
}

func render(name, text string, data interface{}) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}

	return buf.String(), nil
}
