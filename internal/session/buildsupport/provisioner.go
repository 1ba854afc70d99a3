package buildsupport

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Provisioner is a language-specific, best-effort step run before a
// session spawns its LSP child. A Provisioner never blocks session start on
// failure; the session logs the error and spawns the child anyway.
type Provisioner interface {
	Name() string
	Provision(ctx context.Context, workspaceRoot string) error
}

const bloopPluginLine = `addSbtPlugin("ch.epfl.scala" % "sbt-bloop" % "1.5.11")`

// BloopProvisioner generates the Bloop build descriptor Metals needs for a
// Scala workspace by adding the sbt-bloop plugin (if missing) and running
// `sbt bloopInstall`, retrying a few times since a cold sbt launch
// occasionally segfaults or is killed by the OS under memory pressure.
type BloopProvisioner struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	Log        zerolog.Logger
}

// NewBloopProvisioner builds a BloopProvisioner with the defaults the
// original prototype used: 3 retries, 2-second base delay.
func NewBloopProvisioner(log zerolog.Logger) *BloopProvisioner {
	return &BloopProvisioner{MaxRetries: 3, BaseDelay: 2 * time.Second, Log: log}
}

func (p *BloopProvisioner) Name() string { return "bloop" }

// Provision is a no-op if workspaceRoot/.bloop already exists. Otherwise it
// ensures the sbt-bloop plugin is declared and runs `sbt bloopInstall`,
// retrying with exponential backoff up to MaxRetries times.
func (p *BloopProvisioner) Provision(ctx context.Context, workspaceRoot string) error {
	bloopDir := filepath.Join(workspaceRoot, ".bloop")
	if info, err := os.Stat(bloopDir); err == nil && info.IsDir() {
		p.Log.Debug().Str("workspace", workspaceRoot).Msg("bloop already provisioned, skipping")
		return nil
	}

	if err := ensurePluginDeclared(workspaceRoot); err != nil {
		return fmt.Errorf("declaring sbt-bloop plugin: %w", err)
	}

	attempt := 0
	operation := func() error {
		attempt++
		cmd := exec.CommandContext(ctx, "sbt", "bloopInstall")
		cmd.Dir = workspaceRoot
		out, err := cmd.CombinedOutput()
		if err != nil {
			p.Log.Warn().
				Int("attempt", attempt).
				Err(err).
				Str("output", truncateOutput(out)).
				Msg("sbt bloopInstall failed, will retry")
			return fmt.Errorf("sbt bloopInstall: %w", err)
		}
		return nil
	}

	bo := backoff.WithContext(p.newBackOff(), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return fmt.Errorf("bloopInstall did not succeed after %d attempts: %w", attempt, err)
	}
	return nil
}

func (p *BloopProvisioner) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = 2
	return backoff.WithMaxRetries(eb, p.MaxRetries)
}

func ensurePluginDeclared(workspaceRoot string) error {
	pluginsPath := filepath.Join(workspaceRoot, "project", "plugins.sbt")

	existing, err := os.ReadFile(pluginsPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if strings.Contains(string(existing), "sbt-bloop") {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(pluginsPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(pluginsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(bloopPluginLine + "\n")
	return err
}

func truncateOutput(out []byte) string {
	const max = 2000
	if len(out) <= max {
		return string(out)
	}
	return string(out[:max]) + "...(truncated)"
}
