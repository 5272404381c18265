package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mzsearch/internal/tasks"
	"github.com/desertthunder/mzsearch/internal/ui"
)

// runTUI hands the task to the interactive progress monitor. The model runs the task
// once the user confirms.
func (r *Runner) runTUI(ctx context.Context, task *tasks.SearchTask, progressCh chan tasks.ProgressUpdate) error {
	model := ui.NewModel(ctx, task, progressCh, r.config.Mascot.InstallURL)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		task.Cancel()
		return fmt.Errorf("error running TUI: %w", err)
	}

	return model.Err()
}
