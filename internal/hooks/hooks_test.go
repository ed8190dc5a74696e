package hooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keepvault/onboard/internal/wizard"
)

func TestExecute(t *testing.T) {
	ctx := context.Background()
	workDir := t.TempDir()
	vars := Variables{Wizard: "backup-onboarding", Step: "connect", Session: "abc123"}

	tests := []struct {
		name     string
		hook     *HookConfig
		expected string
		wantErr  string
	}{
		{
			name:     "nil hook",
			hook:     nil,
			expected: "",
		},
		{
			name:     "expands variables",
			hook:     &HookConfig{Command: "echo '{{wizard}}/{{step}}/{{session}}'", Timeout: 5},
			expected: "backup-onboarding/connect/abc123\n",
		},
		{
			name:     "exports environment",
			hook:     &HookConfig{Command: "echo $ONBOARD_STEP", Timeout: 5},
			expected: "connect\n",
		},
		{
			name:    "failure uses stderr",
			hook:    &HookConfig{Command: "echo 'vpn not connected' >&2; exit 3", Timeout: 5},
			wantErr: "hook failed: vpn not connected",
		},
		{
			name:    "failure without stderr",
			hook:    &HookConfig{Command: "exit 1", Timeout: 5},
			wantErr: "hook failed: exit status 1",
		},
		{
			name:    "timeout",
			hook:    &HookConfig{Command: "sleep 5", Timeout: 1},
			wantErr: "hook timed out after 1s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := Execute(ctx, tt.hook, workDir, vars)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("Execute() error = %v, expected %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if output != tt.expected {
				t.Errorf("Execute() output = %q, expected %q", output, tt.expected)
			}
		})
	}
}

func TestExecute_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := Execute(ctx, &HookConfig{Command: "echo 'test'", Timeout: 5}, t.TempDir(), Variables{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, expected context.Canceled", err)
	}
}

func TestExecuteAll_StopsAtFirstFailure(t *testing.T) {
	workDir := t.TempDir()
	marker := filepath.Join(workDir, "ran")

	err := ExecuteAll(context.Background(), []*HookConfig{
		{Command: "exit 1", Timeout: 5},
		{Command: "touch " + marker, Timeout: 5},
	}, workDir, Variables{})
	if err == nil {
		t.Fatal("ExecuteAll() expected error")
	}
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Error("second hook should not have run")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg, err := LoadConfig(t.TempDir())
		if err != nil || cfg != nil {
			t.Fatalf("LoadConfig() = %v, %v; expected nil, nil", cfg, err)
		}
	})

	t.Run("parses steps", func(t *testing.T) {
		dir := t.TempDir()
		content := `version: 1
steps:
  connect:
    on_exit:
      - command: "./check-network.sh"
        timeout: 10
  review:
    on_enter:
      - command: "echo reviewing {{session}}"
`
		if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadConfig(dir)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Version != 1 || len(cfg.Steps) != 2 {
			t.Fatalf("unexpected config: %+v", cfg)
		}
		exit := cfg.Steps["connect"].OnExit
		if len(exit) != 1 || exit[0].Command != "./check-network.sh" || exit[0].Timeout != 10 {
			t.Errorf("connect on_exit = %+v", exit)
		}
		if len(cfg.Steps["review"].OnEnter) != 1 {
			t.Errorf("review on_enter missing")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("steps: [unclosed"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(dir); err == nil {
			t.Error("LoadConfig() expected parse error")
		}
	})
}

func TestAttach(t *testing.T) {
	workDir := t.TempDir()
	cfg := &Config{Steps: map[string]StepHooks{
		"connect": {OnExit: []*HookConfig{{Command: "echo '{{step}} {{session}}' >> log", Timeout: 5}}},
		"review":  {OnEnter: []*HookConfig{{Command: "exit 2", Timeout: 5}}},
	}}

	var innerCalled bool
	steps := []wizard.Step{
		{ID: "platform"},
		{ID: "connect", OnExit: func(context.Context, wizard.Data) error { innerCalled = true; return nil }},
		{ID: "review"},
	}

	session := func(d wizard.Data) string { return d.String("session_id") }
	attached := Attach(cfg, steps, workDir, "backup-onboarding", session)
	if attached[0].OnEnter != nil || attached[0].OnExit != nil {
		t.Error("platform should have no hooks")
	}

	if err := attached[1].OnExit(context.Background(), wizard.Data{"session_id": "s1"}); err != nil {
		t.Fatalf("connect OnExit error = %v", err)
	}
	if !innerCalled {
		t.Error("step's own OnExit should run first")
	}
	logged, err := os.ReadFile(filepath.Join(workDir, "log"))
	if err != nil || strings.TrimSpace(string(logged)) != "connect s1" {
		t.Errorf("hook log = %q, %v", logged, err)
	}

	if err := attached[2].OnEnter(context.Background(), wizard.Data{}); err == nil {
		t.Error("review OnEnter should fail")
	}

	if steps[1].OnExit == nil || steps[2].OnEnter != nil {
		t.Error("Attach must not modify the input slice")
	}
}

func TestAttach_FailingHookAbortsTransition(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{Steps: map[string]StepHooks{
		"platform": {OnExit: []*HookConfig{{Command: "echo 'policy check failed' >&2; exit 1", Timeout: 5}}},
	}}
	steps := Attach(cfg, []wizard.Step{{ID: "platform"}, {ID: "connect"}}, t.TempDir(), "w1", nil)

	def, err := wizard.NewDefinition("w1", steps, wizard.OnComplete(func(context.Context, wizard.Data) error { return nil }))
	if err != nil {
		t.Fatal(err)
	}
	c := wizard.New(ctx, def)

	if got := c.Next(ctx); got != wizard.Failed {
		t.Fatalf("Next() = %v, expected failed", got)
	}
	st := c.State()
	if st.CurrentStepIndex != 0 || st.Error != "hook failed: policy check failed" {
		t.Errorf("state = index %d, error %q", st.CurrentStepIndex, st.Error)
	}
}
