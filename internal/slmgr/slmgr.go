// Package slmgr invokes the Windows Software Licensing Management script
// (slmgr.vbs) through cscript. The script's exit status is advisory only:
// key installs and activation requests are fire-and-wait, and callers must
// re-query the licensing inventory for the actual outcome.
package slmgr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout bounds one cscript invocation.
	DefaultTimeout = 90 * time.Second

	// DefaultSettleDelay gives the licensing service time to apply a change
	// before the caller re-queries.
	DefaultSettleDelay = 5 * time.Second
)

// DefaultScriptPath returns %SystemRoot%\System32\slmgr.vbs. The separators
// are literal: this is a Windows path no matter where the binary was built.
func DefaultScriptPath() string {
	root := os.Getenv("SystemRoot")
	if root == "" {
		root = `C:\Windows`
	}
	return root + `\System32\slmgr.vbs`
}

// Tool runs slmgr.vbs verbs.
type Tool struct {
	scriptPath string
	timeout    time.Duration
	settle     time.Duration

	// run and sleep are abstracted for testing.
	run   func(ctx context.Context, name string, args ...string) (string, error)
	sleep func(d time.Duration)
}

// New returns a Tool. Empty scriptPath selects the system default; out of
// range timings fall back to the defaults.
func New(scriptPath string, timeout, settle time.Duration) *Tool {
	if scriptPath == "" {
		scriptPath = DefaultScriptPath()
	}
	if timeout <= 0 || timeout > 10*time.Minute {
		timeout = DefaultTimeout
	}
	if settle < 0 {
		settle = DefaultSettleDelay
	}

	return &Tool{
		scriptPath: scriptPath,
		timeout:    timeout,
		settle:     settle,
		run:        runCscript,
		sleep:      time.Sleep,
	}
}

// InstallKey installs a volume-license product key (slmgr /ipk).
func (t *Tool) InstallKey(ctx context.Context, key string) (string, error) {
	return t.invoke(ctx, "/ipk", key)
}

// Activate requests online activation for one activation ID (slmgr /ato).
func (t *Tool) Activate(ctx context.Context, activationID string) (string, error) {
	return t.invoke(ctx, "/ato", activationID)
}

// invoke runs one slmgr verb and then settles. The settle sleep is fixed and
// runs regardless of the exit status: the licensing service applies changes
// asynchronously and the follow-up re-query needs the head start. Arguments
// never reach the log; /ipk carries the raw product key.
func (t *Tool) invoke(ctx context.Context, verb string, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmdArgs := append([]string{"//NoLogo", t.scriptPath, verb}, args...)

	start := time.Now()
	out, err := t.run(runCtx, "cscript.exe", cmdArgs...)
	log.Debug().Str("verb", verb).Dur("took", time.Since(start)).Msg("slmgr invocation finished")

	t.sleep(t.settle)

	if err != nil {
		if out != "" {
			return out, fmt.Errorf("slmgr %s: %w: %s", verb, err, out)
		}
		return out, fmt.Errorf("slmgr %s: %w", verb, err)
	}
	return out, nil
}

// runCscript executes cscript and returns combined stdout+stderr; slmgr
// output is human text that only ever gets logged.
func runCscript(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
