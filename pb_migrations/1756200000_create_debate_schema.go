package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		debates := core.NewBaseCollection("debates")
		debates.ListRule = nil
		debates.ViewRule = nil
		debates.CreateRule = nil
		debates.UpdateRule = nil
		debates.DeleteRule = nil

		debates.Fields.Add(&core.TextField{
			Name:     "topic",
			Required: true,
			Max:      300,
		})

		debates.Fields.Add(&core.TextField{
			Name:     "user_name",
			Required: true,
			Max:      50,
		})

		debates.Fields.Add(&core.SelectField{
			Name:      "difficulty",
			Required:  true,
			MaxSelect: 1,
			Values:    []string{"easy", "medium", "hard"},
		})

		debates.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			MaxSelect: 1,
			Values:    []string{"created", "live", "ended"},
		})

		// Serialized session snapshot, opaque to the schema.
		debates.Fields.Add(&core.JSONField{
			Name:     "snapshot",
			Required: false,
			MaxSize:  1 << 20,
		})

		debates.Fields.Add(&core.DateField{
			Name:     "expires_at",
			Required: true,
		})

		debates.Fields.Add(&core.DateField{
			Name:     "last_activity",
			Required: true,
		})

		debates.Indexes = []string{
			"CREATE INDEX idx_debates_expires ON debates(expires_at)",
			"CREATE INDEX idx_debates_activity ON debates(last_activity)",
			"CREATE INDEX idx_debates_status ON debates(status)",
		}

		if err := app.Save(debates); err != nil {
			return err
		}

		participants := core.NewBaseCollection("participants")
		participants.ListRule = nil
		participants.ViewRule = nil
		participants.CreateRule = nil
		participants.UpdateRule = nil
		participants.DeleteRule = nil

		participants.Fields.Add(&core.RelationField{
			Name:          "debate_id",
			Required:      true,
			MaxSelect:     1,
			CollectionId:  debates.Id,
			CascadeDelete: true,
		})

		participants.Fields.Add(&core.TextField{
			Name:     "name",
			Required: true,
			Max:      50,
		})

		participants.Fields.Add(&core.BoolField{
			Name:     "is_ai",
			Required: false,
		})

		participants.Fields.Add(&core.SelectField{
			Name:      "team",
			Required:  true,
			MaxSelect: 1,
			Values:    []string{"pro", "con"},
		})

		// Ordinal speaking slot within the team.
		participants.Fields.Add(&core.NumberField{
			Name:     "role",
			Required: true,
		})

		participants.Indexes = []string{
			"CREATE INDEX idx_participants_debate ON participants(debate_id)",
			"CREATE UNIQUE INDEX idx_participants_seat ON participants(debate_id, team, role)",
		}

		if err := app.Save(participants); err != nil {
			return err
		}

		transcripts := core.NewBaseCollection("transcript_entries")
		transcripts.ListRule = nil
		transcripts.ViewRule = nil
		transcripts.CreateRule = nil
		transcripts.UpdateRule = nil
		transcripts.DeleteRule = nil

		transcripts.Fields.Add(&core.RelationField{
			Name:          "debate_id",
			Required:      true,
			MaxSelect:     1,
			CollectionId:  debates.Id,
			CascadeDelete: true,
		})

		transcripts.Fields.Add(&core.TextField{
			Name:     "speaker",
			Required: true,
			Max:      50,
		})

		transcripts.Fields.Add(&core.TextField{
			Name:     "phase",
			Required: true,
			Max:      50,
		})

		transcripts.Fields.Add(&core.TextField{
			Name:     "text",
			Required: true,
			Max:      10000,
		})

		transcripts.Fields.Add(&core.DateField{
			Name:     "spoken_at",
			Required: true,
		})

		transcripts.Indexes = []string{
			"CREATE INDEX idx_transcript_debate ON transcript_entries(debate_id)",
		}

		if err := app.Save(transcripts); err != nil {
			return err
		}

		reports := core.NewBaseCollection("reports")
		reports.ListRule = nil
		reports.ViewRule = nil
		reports.CreateRule = nil
		reports.UpdateRule = nil
		reports.DeleteRule = nil

		reports.Fields.Add(&core.RelationField{
			Name:          "debate_id",
			Required:      true,
			MaxSelect:     1,
			CollectionId:  debates.Id,
			CascadeDelete: true,
		})

		reports.Fields.Add(&core.JSONField{
			Name:     "payload",
			Required: true,
			MaxSize:  1 << 18,
		})

		reports.Indexes = []string{
			"CREATE INDEX idx_reports_debate ON reports(debate_id)",
		}

		return app.Save(reports)
	}, func(app core.App) error {
		// Down migration - delete in reverse order
		for _, name := range []string{"reports", "transcript_entries", "participants", "debates"} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err == nil && collection != nil {
				if err := app.Delete(collection); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
