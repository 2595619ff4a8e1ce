package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ytdlg/internal/dispatch"
	"ytdlg/internal/ytdl"
)

const pollInterval = 100 * time.Millisecond

type tickMsg time.Time

type bootstrapDoneMsg struct {
	err error
}

type manifestMsg struct {
	url      string
	manifest *ytdl.Manifest
	err      error
}

type completionMsg struct {
	outcome dispatch.Outcome
	err     error
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitBootstrapCmd reports bootstrap completion. It yields no message when
// the session ends first.
func waitBootstrapCmd(ctx context.Context, b Bootstrap) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.Done():
			return bootstrapDoneMsg{err: b.Err()}
		case <-ctx.Done():
			return nil
		}
	}
}

func queryCmd(ctx context.Context, q Querier, url string) tea.Cmd {
	return func() tea.Msg {
		manifest, err := q.QueryManifest(ctx, url)
		return manifestMsg{url: url, manifest: manifest, err: err}
	}
}

// awaitCompletionCmd blocks on the next completion. The model reissues it
// after every completionMsg so exactly one wait is outstanding.
func awaitCompletionCmd(ctx context.Context, w *dispatch.Waiter) tea.Cmd {
	return func() tea.Msg {
		outcome, err := w.Next(ctx)
		return completionMsg{outcome: outcome, err: err}
	}
}
