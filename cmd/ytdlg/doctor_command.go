package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ytdlg/internal/config"
	"ytdlg/internal/deps"
	"ytdlg/internal/preflight"
	"ytdlg/internal/toolcache"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the cached tool, helper programs and directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			r := newReport(isTerminal(out))

			r.section("Tool")
			checkTool(cfg, r)

			r.section("Dependencies")
			for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
				switch {
				case status.Available:
					r.add(status.Name, levelOK, status.Command)
				case status.Optional:
					r.add(status.Name, levelWarn, status.Detail)
				default:
					r.add(status.Name, levelFail, status.Detail)
				}
			}

			r.section("Environment")
			for _, result := range preflight.RunAll(commandCtx(cmd), cfg) {
				level := levelOK
				if !result.Passed {
					level = levelFail
				}
				r.add(result.Name, level, result.Detail)
			}

			if err := r.write(out); err != nil {
				return err
			}
			if r.failures > 0 {
				return fmt.Errorf("doctor found %d problem(s)", r.failures)
			}
			return nil
		},
	}
}

func checkTool(cfg *config.Config, r *report) {
	desc, err := toolcache.NewDescriptor(cfg)
	if err != nil {
		if errors.Is(err, toolcache.ErrNoReferenceDigest) {
			r.add("Reference digest", levelFail, "none configured; set tool.expected_sha256")
		} else {
			r.add("Reference digest", levelFail, err.Error())
		}
		return
	}
	r.add("Source", levelInfo, desc.URL)

	status := deps.CheckCachedTool(desc.Name, desc.Path)
	if !status.Available {
		r.add("Cached tool", levelWarn, status.Detail)
		return
	}
	if err := toolcache.VerifyFile(desc.Path, desc.SHA256); err != nil {
		r.add("Cached tool", levelFail, fmt.Sprintf("%s fails verification; ytdlg bootstrap will discard it", desc.Path))
		return
	}
	r.add("Cached tool", levelOK, desc.Path)
}
