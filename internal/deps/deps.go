package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"ytdlg/internal/config"
)

// Requirement names a program that downloads may shell out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Optional programs only degrade some downloads when missing.
	Optional bool
}

// Status is a Requirement together with the lookup result.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

var (
	ffmpeg = Requirement{
		Name:        "FFmpeg",
		Command:     "ffmpeg",
		Description: "Merges separate audio and video formats",
		Optional:    true,
	}
	python = Requirement{
		Name:        "Python",
		Command:     "python3",
		Description: "Interpreter for the youtube-dl zipapp",
	}
)

// Requirements lists the helpers the configured tool needs. youtube-dl is
// shipped as a Python zipapp, so it also needs an interpreter on PATH.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{ffmpeg}
	if cfg != nil && strings.EqualFold(cfg.Tool.Name, "youtube-dl") {
		reqs = append(reqs, python)
	}
	return reqs
}

// CheckBinaries looks every requirement up on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		results[i] = lookup(req)
	}
	return results
}

func lookup(req Requirement) Status {
	status := Status{Requirement: req}
	switch _, err := exec.LookPath(req.Command); {
	case req.Command == "":
		status.Detail = "command not configured"
	case err != nil:
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
	default:
		status.Available = true
	}
	return status
}
