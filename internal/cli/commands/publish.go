package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ctrf/internal/config"
	"ctrf/internal/history"
	"ctrf/internal/report"
	"ctrf/internal/storage"
)

// PublishCommand stores a written report in the history database
type PublishCommand struct {
	config    *config.Config
	storage   storage.Storage
	publisher history.Publisher
}

// NewPublishCommand creates a new PublishCommand
func NewPublishCommand(cfg *config.Config, st storage.Storage, publisher history.Publisher) *PublishCommand {
	return &PublishCommand{
		config:    cfg,
		storage:   st,
		publisher: publisher,
	}
}

// Execute runs the command
func (pc *PublishCommand) Execute(cmd *cobra.Command, args []string) error {
	path := reportPath(pc.config, args)
	rep, meta, err := pc.storage.LoadWithMeta(path)
	if err != nil {
		return err
	}
	if meta.ReportID == "" {
		// Reports written by other producers may lack an id
		fresh := report.NewMeta(meta.Workers)
		meta.ReportID = fresh.ReportID
		if meta.Timestamp.IsZero() {
			meta.Timestamp = fresh.Timestamp
		}
	}

	if err := pc.publisher.Publish(cmd.Context(), rep, meta); err != nil {
		return fmt.Errorf("failed to publish %s: %w", path, err)
	}
	color.Green("✓ Published %d test(s) as report %s", rep.Len(), meta.ReportID)
	return nil
}
