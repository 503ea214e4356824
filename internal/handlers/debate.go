package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/security"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/services"
)

type DebateHandlers struct {
	dm       *services.DebateManager
	registry *services.Registry
}

func NewDebateHandlers(dm *services.DebateManager, registry *services.Registry) *DebateHandlers {
	return &DebateHandlers{dm: dm, registry: registry}
}

type createDebateRequest struct {
	Topic      string `json:"topic"`
	UserName   string `json:"userName"`
	Difficulty string `json:"difficulty"`
}

// CreateDebate sets up a debate record and its roster.
func (h *DebateHandlers) CreateDebate(re *core.RequestEvent) error {
	var req createDebateRequest
	if err := json.NewDecoder(re.Request.Body).Decode(&req); err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	topic, err := security.ValidateTopic(req.Topic)
	if err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	userName, err := security.ValidateUserName(req.UserName)
	if err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	difficulty := security.ValidateDifficulty(req.Difficulty)

	record, participants, err := h.dm.CreateDebate(topic, userName, difficulty)
	if err != nil {
		return re.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create debate"})
	}

	return re.JSON(http.StatusOK, map[string]any{
		"id":           record.Id,
		"topic":        topic,
		"difficulty":   difficulty,
		"participants": participants,
	})
}

// GetDebate returns the live snapshot when a session is running, otherwise
// the stored record.
func (h *DebateHandlers) GetDebate(re *core.RequestEvent) error {
	debateID := re.Request.PathValue("debateId")

	if orch := h.registry.Lookup(debateID); orch != nil {
		return re.JSON(http.StatusOK, map[string]any{
			"id":           debateID,
			"state":        orch.Snapshot(),
			"participants": orch.Participants(),
			"live":         true,
		})
	}

	record, err := h.dm.GetDebate(debateID)
	if err != nil {
		return re.JSON(http.StatusNotFound, map[string]string{"error": "Debate not found"})
	}
	participants, err := h.dm.GetParticipants(debateID)
	if err != nil {
		return re.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load roster"})
	}

	return re.JSON(http.StatusOK, map[string]any{
		"id":           record.Id,
		"topic":        record.GetString("topic"),
		"status":       record.GetString("status"),
		"difficulty":   record.GetString("difficulty"),
		"participants": participants,
		"live":         false,
	})
}

// GetReport returns the saved score report for an ended debate.
func (h *DebateHandlers) GetReport(re *core.RequestEvent) error {
	debateID := re.Request.PathValue("debateId")

	report, err := h.dm.GetReport(debateID)
	if err != nil {
		return re.JSON(http.StatusNotFound, map[string]string{"error": "Report not available"})
	}
	return re.JSON(http.StatusOK, report)
}

// ResumeDebate rebuilds a session from its saved snapshot.
func (h *DebateHandlers) ResumeDebate(re *core.RequestEvent) error {
	debateID := re.Request.PathValue("debateId")

	orch, err := h.registry.Restore(debateID)
	if err != nil {
		return re.JSON(http.StatusNotFound, map[string]string{"error": "No saved session to resume"})
	}
	return re.JSON(http.StatusOK, map[string]any{
		"id":    debateID,
		"state": orch.Snapshot(),
	})
}
