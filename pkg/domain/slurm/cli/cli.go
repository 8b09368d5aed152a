// Package cli talks to SLURM through its command line tools.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/poselab/dispatchd/pkg/domain"
	"github.com/poselab/dispatchd/pkg/domain/slurm"
	"github.com/poselab/dispatchd/pkg/utils"
)

// ErrSubmitParse means sbatch ran but printed something other than the
// single "Submitted batch job N" line.
type ErrSubmitParse struct {
	Output string
}

func (e ErrSubmitParse) Error() string {
	return fmt.Sprintf("cannot find job id in sbatch output: %q", e.Output)
}

// Command is one scheduler CLI invocation.
type Command struct {
	Name    string
	Args    []string
	Stdin   string
	Workdir string
}

// Runner executes a Command and returns its stdout.
type Runner func(ctx context.Context, cmd Command) (string, error)

func defaultRunner(ctx context.Context, command Command) (string, error) {
	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	cmd.Dir = command.Workdir
	if command.Stdin != "" {
		cmd.Stdin = strings.NewReader(command.Stdin)
	}
	out, err := cmd.Output()
	if err != nil {
		exitErr := new(exec.ExitError)
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf(
				"%s: %w: %s", command.Name, err, string(exitErr.Stderr),
			)
		}
		return "", fmt.Errorf("%s: %w", command.Name, err)
	}
	return string(out), nil
}

const DefaultTimeout = 15 * time.Second

type Config struct {
	// commands. Zero values mean sbatch, sacct and scontrol on PATH.
	Sbatch   string
	Sacct    string
	Scontrol string

	// per-invocation deadline. Zero means DefaultTimeout.
	Timeout time.Duration
}

func (c Config) fillDefault() Config {
	if c.Sbatch == "" {
		c.Sbatch = "sbatch"
	}
	if c.Sacct == "" {
		c.Sacct = "sacct"
	}
	if c.Scontrol == "" {
		c.Scontrol = "scontrol"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

type gateway struct {
	config Config
	run    Runner
}

type Option func(*gateway)

// WithRunner swaps the command runner. For tests.
func WithRunner(run Runner) Option {
	return func(g *gateway) { g.run = run }
}

func New(config Config, options ...Option) slurm.Interface {
	g := &gateway{config: config.fillDefault(), run: defaultRunner}
	for _, opt := range options {
		opt(g)
	}
	return g
}

var reSubmitted = regexp.MustCompile(`^Submitted batch job (\d+)$`)

func (g *gateway) Submit(ctx context.Context, script string, workdir string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	out, err := g.run(ctx, Command{
		Name: g.config.Sbatch, Stdin: script, Workdir: workdir,
	})
	if err != nil {
		return 0, err
	}

	m := reSubmitted.FindStringSubmatch(strings.TrimSpace(out))
	if m == nil {
		return 0, ErrSubmitParse{Output: out}
	}
	return strconv.ParseInt(m[1], 10, 64)
}

// leading word of a sacct State field. Terminal-by-signal states come with
// trailers like "CANCELLED by 1234".
var reStateWord = regexp.MustCompile(`^\w+`)

func (g *gateway) Status(ctx context.Context, slurmIds []int64) ([]slurm.Observation, error) {
	observations := []slurm.Observation{}
	if len(slurmIds) == 0 {
		return observations, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	jobs := strings.Join(
		utils.Map(slurmIds, func(id int64) string { return strconv.FormatInt(id, 10) }),
		",",
	)
	out, err := g.run(ctx, Command{
		Name: g.config.Sacct,
		Args: []string{
			"-X", "-P", "--delimiter=,",
			"--format=JobID,State,StdOut",
			"--noheader",
			"--jobs=" + jobs,
		},
	})
	if err != nil {
		return nil, err
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, ",", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("unexpected sacct line: %q", line)
		}
		slurmId, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected sacct line: %q: %w", line, err)
		}
		state := reStateWord.FindString(fields[1])
		status, err := domain.AsSlurmStatus(state)
		if err != nil {
			return nil, fmt.Errorf("unexpected sacct line: %q: %w", line, err)
		}
		if status == domain.LostToSlurm {
			// bookkeeping marker of ours, not a state sacct reports.
			return nil, fmt.Errorf("unexpected sacct line: %q", line)
		}
		observations = append(observations, slurm.Observation{
			SlurmId: slurmId,
			Status:  status,
			LogPath: domain.LogTemplate(fields[2]),
		})
	}
	return observations, nil
}

var (
	reJobState = regexp.MustCompile(`(?m)^[ \t]*JobState=(\w+)`)
	reStdOut   = regexp.MustCompile(`(?m)^[ \t]*StdOut=(.+)$`)
)

func (g *gateway) Show(ctx context.Context, slurmId int64) (slurm.Detail, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	out, err := g.run(ctx, Command{
		Name: g.config.Scontrol,
		Args: []string{"show", "job", strconv.FormatInt(slurmId, 10)},
	})
	if err != nil {
		return slurm.Detail{}, err
	}

	detail := slurm.Detail{}
	if m := reJobState.FindStringSubmatch(out); m != nil {
		detail.JobState = m[1]
	}
	if m := reStdOut.FindStringSubmatch(out); m != nil {
		detail.StdOut = strings.TrimSpace(m[1])
	}
	return detail, nil
}
