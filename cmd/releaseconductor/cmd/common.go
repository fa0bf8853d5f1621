package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/grokify/mogo/net/http/retryhttp"
	"github.com/spf13/viper"

	"github.com/grokify/releaseconductor/internal/miner"
	"github.com/grokify/releaseconductor/internal/reconciler"
	"github.com/grokify/releaseconductor/internal/releaser"
	"github.com/grokify/releaseconductor/internal/report"
	"github.com/grokify/releaseconductor/internal/tracker"
	"github.com/grokify/releaseconductor/pkg/model"
)

// errFailures is returned when a run completed with per-item failures.
var errFailures = errors.New("reconciliation completed with failures")

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newTransport creates the retry transport shared by the GitHub and Jira
// clients. It handles 429 rate limits and transient server errors.
func newTransport() http.RoundTripper {
	retryOpts := []retryhttp.Option{}

	if n := viper.GetInt("http.max-retries"); n > 0 {
		retryOpts = append(retryOpts, retryhttp.WithMaxRetries(n))
	}
	if d := viper.GetDuration("http.initial-backoff"); d > 0 {
		retryOpts = append(retryOpts, retryhttp.WithInitialBackoff(d))
	}

	return retryhttp.NewWithOptions(retryOpts...)
}

// reconcilerConfig reads the reconciler settings from viper.
func reconcilerConfig() (reconciler.Config, error) {
	var projects []model.Project
	if err := viper.UnmarshalKey("jira.projects", &projects); err != nil {
		return reconciler.Config{}, fmt.Errorf("invalid jira.projects: %w", err)
	}
	var master model.MasterProject
	if err := viper.UnmarshalKey("jira.master", &master); err != nil {
		return reconciler.Config{}, fmt.Errorf("invalid jira.master: %w", err)
	}

	cfg := reconciler.Config{
		Repo:       model.ParseRepoRef(viper.GetString("github.repository")),
		TagPrefix:  viper.GetString("tag-prefix"),
		BranchType: viper.GetString("branch-type"),
		Workspace:  viper.GetString("workspace"),
		Projects:   projects,
		Master:     master,
		BatchSize:  viper.GetInt("jira.batch-size"),
		LinkType:   viper.GetString("jira.link-type"),
		DryRun:     viper.GetBool("dry-run"),
	}
	return cfg, cfg.Validate()
}

func newMiner(logger *slog.Logger) (miner.Miner, error) {
	switch kind := viper.GetString("miner.kind"); kind {
	case "", "git":
		return miner.NewGitMiner(miner.WithLogger(logger)), nil
	case "script":
		path := viper.GetString("miner.script")
		if path == "" {
			return nil, fmt.Errorf("miner.script required for the script miner")
		}
		return miner.NewScriptMiner(path, miner.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unknown miner kind %q", kind)
	}
}

func newReconciler(logger *slog.Logger) (*reconciler.Reconciler, error) {
	cfg, err := reconcilerConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Repo.Owner == "" || cfg.Repo.Name == "" {
		return nil, fmt.Errorf("GitHub repository required. Set GITHUB_REPOSITORY or use --repo flag")
	}

	token := viper.GetString("github.token")
	if token == "" {
		return nil, fmt.Errorf("GitHub token required. Set GITHUB_TOKEN or use --token flag")
	}

	rt := newTransport()

	rel, err := releaser.NewGitHubReleaser(releaser.GitHubConfig{
		Token:     token,
		Repo:      cfg.Repo,
		BaseURL:   viper.GetString("github.base-url"),
		Transport: rt,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	tc, err := tracker.NewJiraClient(tracker.JiraConfig{
		BaseURL:   viper.GetString("jira.base-url"),
		User:      viper.GetString("jira.user"),
		Token:     viper.GetString("jira.token"),
		Transport: rt,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	m, err := newMiner(logger)
	if err != nil {
		return nil, err
	}

	return reconciler.New(cfg, rel, tc, m, reconciler.WithLogger(logger))
}

// runReconcile handles ev and writes the report. It fails when the run
// failed or collected per-item failures.
func runReconcile(ctx context.Context, ev model.ReleaseEvent) error {
	logger := newLogger()

	r, err := newReconciler(logger)
	if err != nil {
		return err
	}

	result, runErr := r.Handle(ctx, ev)
	if result != nil {
		if err := writeResult(result); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("%w: %d", errFailures, len(result.Failures))
	}
	return nil
}

func writeResult(result *model.ReconcileResult) error {
	formatter, err := report.NewFormatter(viper.GetString("format"))
	if err != nil {
		return err
	}

	output, err := formatter.FormatReconcileResult(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	return report.Write(os.Stdout, viper.GetString("output"), output)
}
