// Package setup bootstraps a pipeline workspace: env file, Python
// dependencies, and SQL migrations applied through the external psql client.
package setup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
)

// StepStatus is the outcome of one bootstrap step.
type StepStatus string

const (
	StepDone    StepStatus = "done"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

// StepResult reports one bootstrap step.
type StepResult struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

// Options controls the bootstrap run.
type Options struct {
	SkipPip bool
	SkipDB  bool

	EnvFile      string
	EnvExample   string
	Requirements string
	SQLDir       string
	PostgresDSN  string
}

// MigrationFiles returns the migration file names in apply order.
func MigrationFiles() []string {
	return []string{
		"001_init.sql",
		"002_vector_indexes.sql",
		"003_hybrid_search.sql",
	}
}

// Bootstrapper runs the workspace setup steps. Command execution is
// injectable for tests.
type Bootstrapper struct {
	log      zerolog.Logger
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

// New creates a Bootstrapper that executes real commands.
func New(log zerolog.Logger) *Bootstrapper {
	return &Bootstrapper{
		log:      log,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd.Run()
		},
	}
}

// Run executes the bootstrap steps in order. Missing tools and inputs
// degrade to a skipped, logged step; only the env-file step can fail hard
// on an unwritable target.
func (b *Bootstrapper) Run(ctx context.Context, opts Options) []StepResult {
	results := []StepResult{
		b.envFile(opts),
		b.pipInstall(ctx, opts),
	}
	results = append(results, b.migrations(ctx, opts)...)

	for _, r := range results {
		b.log.Info().Str("step", r.Name).Str("status", string(r.Status)).Str("detail", r.Detail).Msg("setup step")
	}
	return results
}

func (b *Bootstrapper) envFile(opts Options) StepResult {
	res := StepResult{Name: "env-file"}

	if _, err := os.Stat(opts.EnvFile); err == nil {
		res.Status = StepSkipped
		res.Detail = fmt.Sprintf("%s already exists", opts.EnvFile)
		return res
	}

	data, err := os.ReadFile(opts.EnvExample)
	if err != nil {
		res.Status = StepSkipped
		res.Detail = fmt.Sprintf("%s not found", opts.EnvExample)
		return res
	}

	if err := os.WriteFile(opts.EnvFile, data, 0o600); err != nil {
		res.Status = StepFailed
		res.Detail = err.Error()
		return res
	}

	res.Status = StepDone
	res.Detail = fmt.Sprintf("created %s from %s", opts.EnvFile, opts.EnvExample)
	return res
}

func (b *Bootstrapper) pipInstall(ctx context.Context, opts Options) StepResult {
	res := StepResult{Name: "pip-install"}

	if opts.SkipPip {
		res.Status = StepSkipped
		res.Detail = "--skip-pip"
		return res
	}
	if _, err := os.Stat(opts.Requirements); err != nil {
		res.Status = StepSkipped
		res.Detail = fmt.Sprintf("%s not found", opts.Requirements)
		return res
	}

	pip, err := b.lookPath("pip3")
	if err != nil {
		pip, err = b.lookPath("pip")
	}
	if err != nil {
		res.Status = StepSkipped
		res.Detail = "pip not found on PATH"
		return res
	}

	if err := b.run(ctx, pip, "install", "-r", opts.Requirements); err != nil {
		res.Status = StepFailed
		res.Detail = err.Error()
		return res
	}

	res.Status = StepDone
	res.Detail = fmt.Sprintf("installed %s", opts.Requirements)
	return res
}

func (b *Bootstrapper) migrations(ctx context.Context, opts Options) []StepResult {
	skipAll := func(detail string) []StepResult {
		results := make([]StepResult, 0, len(MigrationFiles()))
		for _, f := range MigrationFiles() {
			results = append(results, StepResult{Name: "sql/" + f, Status: StepSkipped, Detail: detail})
		}
		return results
	}

	if opts.SkipDB {
		return skipAll("--skip-db")
	}
	if opts.PostgresDSN == "" {
		return skipAll("POSTGRES_DSN not set")
	}

	psql, err := b.lookPath("psql")
	if err != nil {
		return skipAll("psql not found on PATH")
	}

	var results []StepResult
	for _, f := range MigrationFiles() {
		res := StepResult{Name: "sql/" + f}
		path := filepath.Join(opts.SQLDir, f)

		if _, err := os.Stat(path); err != nil {
			res.Status = StepSkipped
			res.Detail = fmt.Sprintf("%s not found", path)
			results = append(results, res)
			continue
		}

		if err := b.run(ctx, psql, opts.PostgresDSN, "-v", "ON_ERROR_STOP=1", "-f", path); err != nil {
			res.Status = StepFailed
			res.Detail = err.Error()
			results = append(results, res)
			continue
		}

		res.Status = StepDone
		res.Detail = fmt.Sprintf("applied %s", path)
		results = append(results, res)
	}
	return results
}
