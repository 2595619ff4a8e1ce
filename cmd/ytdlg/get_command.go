package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ytdlg/internal/app"
	"ytdlg/internal/dispatch"
)

// defaultOutputTemplate is passed to the tool when no destination is given.
const defaultOutputTemplate = "%(title)s [%(id)s].%(ext)s"

func newGetCommand(ctx *commandContext) *cobra.Command {
	var formatID string
	var dest string

	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Download one format of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			formatID = strings.TrimSpace(formatID)
			if formatID == "" {
				return errors.New("a format id is required (see ytdlg info <url>)")
			}
			return ctx.withApp(func(a *app.App) error {
				runCtx := commandCtx(cmd)
				if _, err := bootstrapWithProgress(runCtx, a, cmd.ErrOrStderr()); err != nil {
					return err
				}
				if err := a.Start(runCtx); err != nil {
					return err
				}

				target := strings.TrimSpace(dest)
				if target == "" {
					target = filepath.Join(a.Config.Download.OutputDir, defaultOutputTemplate)
				}
				id, err := a.Dispatcher.Submit(runCtx, dispatch.Job{
					URL:         url,
					FormatID:    formatID,
					Destination: target,
				})
				if err != nil {
					return fmt.Errorf("queue download: %w", err)
				}
				outcome, err := a.Notifier.AwaitJob(runCtx, id)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(outcome.Output) > 0 {
					fmt.Fprint(out, string(outcome.Output))
				}
				if outcome.Err != nil {
					return fmt.Errorf("download %s (format %s): %w", url, formatID, outcome.Err)
				}
				fmt.Fprintf(out, "Finished in %s\n", outcome.Duration().Round(time.Millisecond))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&formatID, "format", "f", "", "Format id to download")
	cmd.Flags().StringVarP(&dest, "output", "o", "", "Destination path or youtube-dl output template")
	return cmd
}
