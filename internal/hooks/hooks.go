package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/keepvault/onboard/internal/logger"
	"github.com/keepvault/onboard/internal/wizard"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the hooks configuration file.
const ConfigFileName = ".onboard.hooks.yml"

// LoadConfig loads the hooks configuration from the working directory.
// Returns nil if the config file doesn't exist (hooks are optional).
// Returns an error only if the file exists but cannot be parsed.
func LoadConfig(workDir string) (*Config, error) {
	configPath := filepath.Join(workDir, ConfigFileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("No hooks config found at %s", configPath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read hooks config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse hooks config: %w", err)
	}

	logger.Debug("Loaded hooks config from %s (version: %d, steps: %d)", configPath, cfg.Version, len(cfg.Steps))
	return &cfg, nil
}

// Variables holds template variables that can be expanded in hook commands.
type Variables struct {
	Wizard  string
	Step    string
	Session string
}

// Execute runs a hook command and returns its stdout.
// Template variables in the command ({{wizard}}, {{step}}, {{session}}) are
// expanded before execution. A non-zero exit, a timeout or a cancelled
// context is returned as an error.
func Execute(ctx context.Context, hook *HookConfig, workDir string, vars Variables) (string, error) {
	if hook == nil || hook.Command == "" {
		return "", nil
	}

	command := expandVariables(hook.Command, vars)
	logger.Debug("Executing hook command: %s", command)

	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = workDir
	cmd.WaitDelay = time.Second // don't wait on grandchildren holding the pipes
	cmd.Env = append(os.Environ(),
		"ONBOARD_WIZARD="+vars.Wizard,
		"ONBOARD_STEP="+vars.Step,
		"ONBOARD_SESSION="+vars.Session,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		logger.Warn("Hook command timed out after %ds: %s", timeout, command)
		return stdout.String(), fmt.Errorf("hook timed out after %ds", timeout)
	}

	if err != nil {
		logger.Warn("Hook command failed: %v", err)
		if msg := firstLine(stderr.String()); msg != "" {
			return stdout.String(), fmt.Errorf("hook failed: %s", msg)
		}
		return stdout.String(), fmt.Errorf("hook failed: %w", err)
	}

	if stderr.Len() > 0 {
		logger.Debug("Hook stderr: %s", stderr.String())
	}
	logger.Debug("Hook executed successfully, output length: %d bytes", stdout.Len())
	return stdout.String(), nil
}

// ExecuteAll runs hooks in order and stops at the first failure.
func ExecuteAll(ctx context.Context, hooks []*HookConfig, workDir string, vars Variables) error {
	for _, hook := range hooks {
		if _, err := Execute(ctx, hook, workDir, vars); err != nil {
			return err
		}
	}
	return nil
}

// SessionFunc extracts the session id from the wizard data at hook time.
type SessionFunc func(wizard.Data) string

// Attach wraps each step's OnEnter and OnExit so the configured shell hooks
// run after the step's own hook. Steps without configured hooks are returned
// unchanged. A nil cfg returns steps as-is. session may be nil.
func Attach(cfg *Config, steps []wizard.Step, workDir, wizardID string, session SessionFunc) []wizard.Step {
	if cfg == nil || len(cfg.Steps) == 0 {
		return steps
	}

	out := make([]wizard.Step, len(steps))
	for i, step := range steps {
		out[i] = step
		sh, ok := cfg.Steps[step.ID]
		if !ok {
			continue
		}
		vars := Variables{Wizard: wizardID, Step: step.ID}
		if len(sh.OnEnter) > 0 {
			out[i].OnEnter = chain(step.OnEnter, sh.OnEnter, workDir, vars, session)
		}
		if len(sh.OnExit) > 0 {
			out[i].OnExit = chain(step.OnExit, sh.OnExit, workDir, vars, session)
		}
	}
	return out
}

func chain(inner wizard.HookFunc, hooks []*HookConfig, workDir string, vars Variables, session SessionFunc) wizard.HookFunc {
	return func(ctx context.Context, data wizard.Data) error {
		if inner != nil {
			if err := inner(ctx, data); err != nil {
				return err
			}
		}
		v := vars
		if session != nil {
			v.Session = session(data)
		}
		return ExecuteAll(ctx, hooks, workDir, v)
	}
}

// expandVariables replaces {{variable}} placeholders in the command string.
func expandVariables(command string, vars Variables) string {
	replacements := map[string]string{
		"{{wizard}}":  vars.Wizard,
		"{{step}}":    vars.Step,
		"{{session}}": vars.Session,
	}

	result := command
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
