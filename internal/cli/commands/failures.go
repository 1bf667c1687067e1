package commands

import (
	"github.com/spf13/cobra"

	"ctrf/internal/config"
	"ctrf/internal/storage"
	"ctrf/internal/ui"
)

// FailuresCommand handles the failures command
type FailuresCommand struct {
	config  *config.Config
	storage storage.Storage
	viewer  ui.Viewer
}

// NewFailuresCommand creates a new FailuresCommand
func NewFailuresCommand(cfg *config.Config, st storage.Storage, viewer ui.Viewer) *FailuresCommand {
	return &FailuresCommand{
		config:  cfg,
		storage: st,
		viewer:  viewer,
	}
}

// Execute runs the command
func (fc *FailuresCommand) Execute(cmd *cobra.Command, args []string) error {
	rep, err := fc.storage.Load(reportPath(fc.config, args))
	if err != nil {
		return err
	}

	return fc.viewer.View(rep)
}

// reportPath is the report named on the command line, or the configured one
func reportPath(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.GetOutputPath()
}
