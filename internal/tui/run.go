package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"ytdlg/internal/app"
)

// Run drives an interactive session against a started App. It returns the
// bootstrap error when the tool could not be made ready.
func Run(ctx context.Context, a *app.App) error {
	m := New(ctx, Deps{
		Progress:  a.Tracker,
		Bootstrap: a.Bootstrap,
		Querier:   a.Client,
		Submitter: a.Dispatcher,
		Holder:    a.Dispatcher,
		Waiter:    a.Notifier.Subscribe(),
		OutputDir: a.Config.Download.OutputDir,
		ToolName:  a.Descriptor.Name,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("interactive session: %w", err)
	}
	if fm, ok := final.(Model); ok && fm.FatalErr() != nil {
		return fmt.Errorf("bootstrap: %w", fm.FatalErr())
	}
	return nil
}
