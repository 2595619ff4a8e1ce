package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ytdlg/internal/app"
	"ytdlg/internal/toolcache"
)

const progressPollInterval = 100 * time.Millisecond

func newBootstrapCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Fetch and verify the cached youtube-dl executable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				path, err := bootstrapWithProgress(commandCtx(cmd), a, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
}

// bootstrapWithProgress runs bootstrap in the foreground while a poller
// renders the tracker on out. The bar only appears on a terminal.
func bootstrapWithProgress(ctx context.Context, a *app.App, out io.Writer) (string, error) {
	type result struct {
		path string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		path, err := a.RunBootstrap(ctx)
		done <- result{path: path, err: err}
	}()

	render := isTerminal(out)
	var bar *progressbar.ProgressBar
	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	for {
		select {
		case res := <-done:
			if bar != nil {
				downloaded, _ := a.Tracker.Snapshot()
				_ = bar.Set64(int64(downloaded))
				_ = bar.Finish()
				fmt.Fprintln(out)
			}
			if res.err != nil {
				return "", bootstrapError(res.err)
			}
			return res.path, nil
		case <-ticker.C:
			if !render || !a.Tracker.Active() {
				continue
			}
			downloaded, total := a.Tracker.Snapshot()
			if bar == nil {
				bar = newFetchBar(out, a.Descriptor.Name, total)
			}
			_ = bar.Set64(int64(downloaded))
		}
	}
}

func newFetchBar(out io.Writer, name string, total uint64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(int64(total),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Fetching "+name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(progressPollInterval),
		progressbar.OptionSetPredictTime(false),
	)
}

// bootstrapError adds a next step to fatal bootstrap failures.
func bootstrapError(err error) error {
	switch {
	case !toolcache.Fatal(err):
		return err
	case errors.Is(err, toolcache.ErrIntegrityMismatch):
		return fmt.Errorf("%w (the file was removed; check tool.download_url and tool.expected_sha256)", err)
	case errors.Is(err, toolcache.ErrNoReferenceDigest):
		return fmt.Errorf("%w (set tool.expected_sha256 in the config)", err)
	case errors.Is(err, toolcache.ErrNetwork), errors.Is(err, toolcache.ErrLengthUnknown):
		return fmt.Errorf("%w (check connectivity with ytdlg doctor)", err)
	default:
		return err
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
