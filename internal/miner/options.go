package miner

import (
	"io"
	"log/slog"

	"github.com/go-git/go-git/v5"
)

type options struct {
	logger *slog.Logger
	repo   *git.Repository
}

// Option configures a miner.
type Option func(*options)

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRepository makes GitMiner use repo instead of opening the workspace.
func WithRepository(repo *git.Repository) Option {
	return func(o *options) {
		o.repo = repo
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
