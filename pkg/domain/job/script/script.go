// Package script renders sbatch scripts for train and predict jobs.
package script

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/poselab/dispatchd/pkg/domain"
)

// Param carries the per-job pieces of a script. The resource envelope comes
// from the RuntimeProfile.
type Param struct {
	JobName    string
	ConfigPath string

	// directory the job runs in.
	Workdir string

	// directory job logs go to. The log file is named after the
	// scheduler-assigned job id, so it is only known as a template here.
	LogDir string

	// container image holding the dannce toolchain.
	Image string
}

// Build renders the sbatch script text.
//
// It fails only when the profile does not validate; everything else is
// stringly and can always be rendered.
func Build(kind domain.JobKind, mode domain.ArtifactMode, profile domain.RuntimeProfile, param Param) (string, error) {
	if err := profile.Validate(); err != nil {
		return "", err
	}

	verb := "train"
	if kind == domain.Predict {
		verb = "predict"
	}
	command := fmt.Sprintf("%s %s", verb, strings.ToLower(string(mode)))

	logFile := filepath.Join(param.LogDir, "%j.out")

	var sb strings.Builder
	sb.WriteString("#!/bin/bash\n")
	fmt.Fprintf(&sb, "#SBATCH --mem=%dGB\n", profile.MemoryGB)
	sb.WriteString("#SBATCH --gres=gpu:1\n")
	fmt.Fprintf(&sb, "#SBATCH --time=%d:00:00\n", profile.TimeHours)
	fmt.Fprintf(&sb, "#SBATCH --cpus-per-task=%d\n", profile.CPUs)
	fmt.Fprintf(&sb, "#SBATCH --partition=%s\n", quote(strings.Join(profile.Partitions, ",")))
	fmt.Fprintf(&sb, "#SBATCH --job-name=%s\n", quote(param.JobName))
	fmt.Fprintf(&sb, "#SBATCH --output=%s\n", quote(logFile))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "# profile: %s\n", quote(profile.Name))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "IMG=%s\n", quote(param.Image))
	fmt.Fprintf(
		&sb,
		"singularity exec --nv --pwd=%s \"$IMG\" dannce %s %s\n",
		quote(param.Workdir), command, quote(param.ConfigPath),
	)
	return sb.String(), nil
}

var safeWord = regexp.MustCompile(`^[A-Za-z0-9@%+=:,./_-]+$`)

// quote makes a string safe as a single shell word.
func quote(s string) string {
	if s == "" {
		return "''"
	}
	if safeWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
