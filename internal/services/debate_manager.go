package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/config"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/models"
)

// DebateManager is the persistence collaborator: PocketBase-backed CRUD for
// debates, rosters, transcript entries, score reports and the opaque
// serialized session snapshot.
type DebateManager struct {
	app core.App
}

func NewDebateManager(app core.App) *DebateManager {
	return &DebateManager{app: app}
}

// CreateDebate creates a debate record plus its fixed four-seat roster: the
// human on the pro side's first slot and three simulated debaters.
func (dm *DebateManager) CreateDebate(topic, userName string, difficulty models.Difficulty) (*core.Record, []models.Participant, error) {
	collection, err := dm.app.FindCollectionByNameOrId("debates")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find debates collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("topic", topic)
	record.Set("user_name", userName)
	record.Set("difficulty", string(difficulty))
	record.Set("status", "created")
	record.Set("expires_at", time.Now().Add(config.DebateTTL))
	record.Set("last_activity", time.Now())

	if err := dm.app.Save(record); err != nil {
		return nil, nil, fmt.Errorf("failed to save debate record: %w", err)
	}

	roster := []struct {
		name string
		isAI bool
		team models.Team
		role int
	}{
		{userName, false, models.TeamPro, 1},
		{"Jordan", true, models.TeamPro, 2},
		{"Avery", true, models.TeamCon, 1},
		{"Riley", true, models.TeamCon, 2},
	}

	participants := make([]models.Participant, 0, len(roster))
	for _, seat := range roster {
		p, err := dm.addParticipant(record.Id, seat.name, seat.isAI, seat.team, seat.role)
		if err != nil {
			return nil, nil, err
		}
		participants = append(participants, p)
	}

	return record, participants, nil
}

func (dm *DebateManager) addParticipant(debateID, name string, isAI bool, team models.Team, role int) (models.Participant, error) {
	collection, err := dm.app.FindCollectionByNameOrId("participants")
	if err != nil {
		return models.Participant{}, fmt.Errorf("failed to find participants collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("debate_id", debateID)
	record.Set("name", name)
	record.Set("is_ai", isAI)
	record.Set("team", string(team))
	record.Set("role", role)

	if err := dm.app.Save(record); err != nil {
		return models.Participant{}, fmt.Errorf("failed to save participant: %w", err)
	}

	return models.Participant{
		ID:   record.Id,
		Name: name,
		IsAI: isAI,
		Team: team,
		Role: role,
	}, nil
}

// GetDebate retrieves a debate by ID.
func (dm *DebateManager) GetDebate(id string) (*core.Record, error) {
	record, err := dm.app.FindRecordById("debates", id)
	if err != nil {
		return nil, fmt.Errorf("debate not found: %w", err)
	}
	return record, nil
}

// GetParticipants retrieves the roster for a debate in speaking order.
func (dm *DebateManager) GetParticipants(debateID string) ([]models.Participant, error) {
	records, err := dm.app.FindRecordsByFilter(
		"participants",
		"debate_id = {:debateId}",
		"team,role",
		10,
		0,
		map[string]any{"debateId": debateID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	participants := make([]models.Participant, 0, len(records))
	for _, r := range records {
		participants = append(participants, models.Participant{
			ID:   r.Id,
			Name: r.GetString("name"),
			IsAI: r.GetBool("is_ai"),
			Team: models.Team(r.GetString("team")),
			Role: r.GetInt("role"),
		})
	}
	return participants, nil
}

// UpdateActivity bumps the last_activity timestamp.
func (dm *DebateManager) UpdateActivity(debateID string) error {
	record, err := dm.GetDebate(debateID)
	if err != nil {
		return err
	}
	record.Set("last_activity", time.Now())
	return dm.app.Save(record)
}

// SetStatus moves the debate through created -> live -> ended.
func (dm *DebateManager) SetStatus(debateID, status string) error {
	record, err := dm.GetDebate(debateID)
	if err != nil {
		return err
	}
	record.Set("status", status)
	record.Set("last_activity", time.Now())
	return dm.app.Save(record)
}

// SaveSnapshot stores the serialized orchestrator state. The blob is opaque
// to the storage layer.
func (dm *DebateManager) SaveSnapshot(debateID string, blob []byte) error {
	record, err := dm.GetDebate(debateID)
	if err != nil {
		return err
	}
	record.Set("snapshot", string(blob))
	record.Set("last_activity", time.Now())
	if err := dm.app.Save(record); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the serialized orchestrator state, or an error if
// none was saved.
func (dm *DebateManager) LoadSnapshot(debateID string) ([]byte, error) {
	record, err := dm.GetDebate(debateID)
	if err != nil {
		return nil, err
	}
	blob := record.GetString("snapshot")
	if blob == "" {
		return nil, fmt.Errorf("no snapshot saved for debate %s", debateID)
	}
	return []byte(blob), nil
}

// AppendTranscript persists one spoken turn.
func (dm *DebateManager) AppendTranscript(debateID string, entry models.TranscriptEntry) error {
	collection, err := dm.app.FindCollectionByNameOrId("transcript_entries")
	if err != nil {
		return fmt.Errorf("failed to find transcript collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("debate_id", debateID)
	record.Set("speaker", entry.Speaker)
	record.Set("phase", string(entry.Phase))
	record.Set("text", entry.Text)
	record.Set("spoken_at", entry.At)

	if err := dm.app.Save(record); err != nil {
		return fmt.Errorf("failed to save transcript entry: %w", err)
	}
	return nil
}

// SaveReport persists the post-debate score report.
func (dm *DebateManager) SaveReport(debateID string, report models.ScoreReport) error {
	collection, err := dm.app.FindCollectionByNameOrId("reports")
	if err != nil {
		return fmt.Errorf("failed to find reports collection: %w", err)
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("debate_id", debateID)
	record.Set("payload", string(payload))

	if err := dm.app.Save(record); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport loads a previously saved score report.
func (dm *DebateManager) GetReport(debateID string) (models.ScoreReport, error) {
	records, err := dm.app.FindRecordsByFilter(
		"reports",
		"debate_id = {:debateId}",
		"-created",
		1,
		0,
		map[string]any{"debateId": debateID},
	)
	if err != nil || len(records) == 0 {
		return models.ScoreReport{}, fmt.Errorf("report not found for debate %s", debateID)
	}

	var report models.ScoreReport
	if err := json.Unmarshal([]byte(records[0].GetString("payload")), &report); err != nil {
		return models.ScoreReport{}, fmt.Errorf("failed to decode report: %w", err)
	}
	return report, nil
}
