package installer

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DotnetTool installs server packages as global .NET tools.
type DotnetTool struct {
	// Command is the dotnet executable; defaults to "dotnet".
	Command string
	// Timeout is the kill threshold for each invocation.
	Timeout time.Duration
	Log     *zap.SugaredLogger
}

var _ PackageManager = &DotnetTool{}

func (d *DotnetTool) InstalledVersion(ctx context.Context, pkg string) (string, bool, error) {
	out, err := d.run(ctx, "tool", "list", "--global")
	if err != nil {
		return "", false, err
	}
	v, ok := parseToolList(out, pkg)
	return v, ok, nil
}

func (d *DotnetTool) Install(ctx context.Context, req InstallRequest) error {
	_, err := d.run(ctx, installArgs(req)...)
	return err
}

func installArgs(req InstallRequest) []string {
	args := []string{"tool", "install", "--global", req.Package}
	if req.Version != "" {
		args = append(args, "--version", req.Version)
	}
	if req.Prerelease {
		args = append(args, "--prerelease")
	}
	if req.Feed != "" {
		args = append(args, "--add-source", req.Feed, "--interactive", "--ignore-failed-sources")
	}
	return args
}

func (d *DotnetTool) run(ctx context.Context, args ...string) ([]byte, error) {
	command := d.Command
	if command == "" {
		command = "dotnet"
	}
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	if d.Log != nil {
		d.Log.Debugw("Running package manager", "command", command, "args", args)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrapf(ctx.Err(), "%s %s", command, strings.Join(args, " "))
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Wrapf(err, "%s %s: %s", command, strings.Join(args, " "), msg)
		}
		return nil, errors.Wrapf(err, "%s %s", command, strings.Join(args, " "))
	}
	return out, nil
}

// parseToolList finds pkg in the table printed by `dotnet tool list`:
//
//	Package Id      Version      Commands
//	-------------------------------------
//	docs.server     1.2.0        docs-server
//
// Package ids are case-insensitive.
func parseToolList(out []byte, pkg string) (string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	inTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "---") {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if strings.EqualFold(fields[0], pkg) {
			return fields[1], true
		}
	}
	return "", false
}
