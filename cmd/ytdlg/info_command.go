package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ytdlg/internal/app"
	"ytdlg/internal/ytdl"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <url>",
		Short: "List the formats available for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			return ctx.withApp(func(a *app.App) error {
				runCtx := commandCtx(cmd)
				if _, err := bootstrapWithProgress(runCtx, a, cmd.ErrOrStderr()); err != nil {
					return err
				}
				manifest, err := a.Client.QueryManifest(runCtx, url)
				if err != nil {
					return fmt.Errorf("query %s: %w", url, err)
				}
				if asJSON {
					return writeJSON(cmd, manifest)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, manifest.DisplayTitle())
				if len(manifest.Formats) == 0 {
					fmt.Fprintln(out, "No downloadable formats")
					return nil
				}
				fmt.Fprintln(out, renderFormatTable(manifest.Formats))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the decoded manifest as JSON")
	return cmd
}

func renderFormatTable(formats []ytdl.Format) string {
	headers := []string{"ID", "Ext", "Resolution", "Note", "Video", "Audio", "Size"}
	rows := make([][]string, 0, len(formats))
	for _, f := range formats {
		size := "-"
		if n, ok := f.Size(); ok {
			size = humanize.IBytes(n)
		}
		rows = append(rows, []string{
			f.FormatID,
			f.Ext,
			dashIfEmpty(f.Resolution()),
			dashIfEmpty(f.FormatNote),
			codecLabel(f.VCodec),
			codecLabel(f.ACodec),
			size,
		})
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}
	return renderTable(headers, rows, aligns)
}

func codecLabel(codec string) string {
	if codec == "" || codec == "none" {
		return "-"
	}
	return codec
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
