package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"founderframe/internal/deck"
	"founderframe/internal/export"
	"founderframe/internal/middleware"
	"founderframe/internal/model"
	"founderframe/internal/progress"
	"founderframe/internal/wizard"
)

const sessionHeader = "X-Session-ID"

// WizardHandler exposes the wizard session operations over HTTP.
type WizardHandler struct {
	store    *wizard.Store
	tracker  *progress.Tracker
	exporter *export.Service
}

func NewWizardHandler(store *wizard.Store, tracker *progress.Tracker, exporter *export.Service) *WizardHandler {
	return &WizardHandler{
		store:    store,
		tracker:  tracker,
		exporter: exporter,
	}
}

// Register mounts all wizard routes on the given group.
func (h *WizardHandler) Register(api *gin.RouterGroup) {
	api.POST("/sessions", h.CreateSession)
	api.GET("/wizard", h.GetView)
	api.POST("/wizard/start", h.GetStarted)
	api.POST("/wizard/analyze", h.Analyze)
	api.POST("/wizard/pitch", h.BuildPitch)
	api.POST("/wizard/export", h.Export)
	api.POST("/wizard/back", h.Back)
	api.POST("/wizard/navigate", h.Navigate)
	api.POST("/wizard/theme", h.SetTheme)
	api.POST("/wizard/dismiss", h.Dismiss)
	api.PATCH("/wizard/slides/:slideId", h.UpdateSlide)
	api.POST("/wizard/slides/:slideId/image", h.RegenerateImage)
	api.POST("/wizard/slides/move", h.MoveSlide)
	api.POST("/wizard/slides/delete", h.DeleteSlide)
	api.GET("/progress/:sessionId", h.Progress)
}

// CreateSession starts a new wizard session.
func (h *WizardHandler) CreateSession(c *gin.Context) {
	m := h.store.Create()
	h.tracker.CreateChannel(m.ID())
	m.SetUser(middleware.UserFrom(c))

	c.JSON(http.StatusOK, m.View())
}

// machine resolves the caller's session and feeds it the latest
// identity emission before any operation runs.
func (h *WizardHandler) machine(c *gin.Context) (*wizard.Machine, bool) {
	id := c.GetHeader(sessionHeader)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + sessionHeader + " header"})
		return nil, false
	}
	m, ok := h.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	m.SetUser(middleware.UserFrom(c))
	return m, true
}

func (h *WizardHandler) GetView(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, m.View())
}

func (h *WizardHandler) GetStarted(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	m.GetStarted(c.Request.Context())
	c.JSON(http.StatusOK, m.View())
}

func (h *WizardHandler) Analyze(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req struct {
		Idea string `json:"idea"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := m.AnalyzeIdea(c.Request.Context(), req.Idea); err != nil {
		h.respondError(c, m, err)
		return
	}
	c.JSON(http.StatusOK, m.View())
}

func (h *WizardHandler) BuildPitch(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	if err := m.BuildPitch(c.Request.Context()); err != nil {
		h.respondError(c, m, err)
		return
	}
	c.JSON(http.StatusOK, m.View())
}

// Export marks the pitch step complete, opens the export step and, when
// an artifact store is configured, uploads the frozen snapshot.
func (h *WizardHandler) Export(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	m.ExportClick()

	view := m.View()
	snap := export.Snapshot{
		ExportedAt: time.Now(),
		Analysis:   view.Analysis,
		Theme:      view.Theme,
		Slides:     view.Deck,
	}

	url, err := h.exporter.Export(m.ID(), snap)
	if err != nil && err != export.ErrNoStore {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "view": view})
		return
	}

	resp := gin.H{"view": view}
	if url != "" {
		resp["artifactUrl"] = url
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WizardHandler) Back(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}
	m.BackToPitch()
	c.JSON(http.StatusOK, m.View())
}

func (h *WizardHandler) Navigate(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req struct {
		Step model.WizardStep `json:"step"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m.NavigateTo(req.Step)
	c.JSON(http.StatusOK, m.View())
}

func (h *WizardHandler) SetTheme(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, theme := range model.Themes() {
		if theme.ID == req.ID {
			m.SetTheme(theme)
			c.JSON(http.StatusOK, m.View())
			return
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "unknown theme"})
}

func (h *WizardHandler) Dismiss(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req struct {
		Target string `json:"target"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Target {
	case "overlay":
		m.DismissOverlay()
	case "toast":
		m.DismissToast()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "target must be overlay or toast"})
		return
	}
	c.JSON(http.StatusOK, m.View())
}

func (h *WizardHandler) UpdateSlide(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req struct {
		Title        *string            `json:"title"`
		Content      *[]string          `json:"content"`
		VisualPrompt *string            `json:"visualPrompt"`
		SpeakerNotes *string            `json:"speakerNotes"`
		Layout       *model.SlideLayout `json:"layout"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m.UpdateSlide(c.Param("slideId"), deck.SlidePatch{
		Title:        req.Title,
		Content:      req.Content,
		VisualPrompt: req.VisualPrompt,
		SpeakerNotes: req.SpeakerNotes,
		Layout:       req.Layout,
	})
	c.JSON(http.StatusOK, m.View())
}

func (h *WizardHandler) RegenerateImage(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := m.RegenerateImage(c.Request.Context(), c.Param("slideId"), req.Prompt); err != nil {
		h.respondError(c, m, err)
		return
	}
	c.JSON(http.StatusOK, m.View())
}

func (h *WizardHandler) MoveSlide(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req struct {
		Index     int    `json:"index"`
		Direction string `json:"direction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m.MoveSlide(req.Index, deck.Direction(req.Direction))
	c.JSON(http.StatusOK, m.View())
}

// DeleteSlide forwards the caller's explicit confirmation through the
// deck manager's confirmation gate; confirm=false aborts untouched.
func (h *WizardHandler) DeleteSlide(c *gin.Context) {
	m, ok := h.machine(c)
	if !ok {
		return
	}

	var req struct {
		Index   int  `json:"index"`
		Confirm bool `json:"confirm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gate := func(string) bool { return req.Confirm }
	if err := m.DeleteSlide(req.Index, gate); err != nil {
		h.respondError(c, m, err)
		return
	}
	c.JSON(http.StatusOK, m.View())
}

// Progress streams per-slide image and step events over SSE.
func (h *WizardHandler) Progress(c *gin.Context) {
	sessionID := c.Param("sessionId")

	ch, exists := h.tracker.GetChannel(sessionID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "no progress found for this session"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent("message", update)
			c.Writer.Flush()
		}
	}
}

// respondError maps machine failures to HTTP responses. The view is
// included so clients can render the updated overlay state directly.
func (h *WizardHandler) respondError(c *gin.Context, m *wizard.Machine, err error) {
	status := http.StatusBadGateway
	if model.IsValidation(err) {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error(), "view": m.View()})
}
