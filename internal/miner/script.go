package miner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ScriptMiner runs an external extraction executable and returns its
// standard output unchanged.
//
// The executable is invoked as:
//
//	<path> -r <release line> -p <KEY1,KEY2> -w <workspace> -t <tag prefix> [-s <since>] [-u <until>]
type ScriptMiner struct {
	path   string
	logger *slog.Logger
}

// NewScriptMiner creates a miner for the executable at path.
func NewScriptMiner(path string, opts ...Option) *ScriptMiner {
	o := applyOptions(opts)
	return &ScriptMiner{path: path, logger: o.logger}
}

// Mine implements Miner.
func (m *ScriptMiner) Mine(ctx context.Context, req Request) (string, error) {
	args := []string{
		"-r", req.ReleaseLine,
		"-p", strings.Join(req.ProjectKeys, ","),
		"-w", req.Workspace,
		"-t", req.TagPrefix,
	}
	if req.Since != "" {
		args = append(args, "-s", req.Since)
	}
	if req.Until != "" {
		args = append(args, "-u", req.Until)
	}

	cmd := exec.CommandContext(ctx, m.path, args...) // #nosec G204
	cmd.Dir = req.Workspace
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	m.logger.Debug("running issue extraction script", "path", m.path, "args", args)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w: %s", m.path, err, strings.TrimSpace(stderr.String()))
	}

	return string(out), nil
}
