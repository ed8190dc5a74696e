package hooks

// Config is the top-level configuration for hooks loaded from .onboard.hooks.yml.
type Config struct {
	Version int                  `yaml:"version"`
	Steps   map[string]StepHooks `yaml:"steps"`
}

// StepHooks lists the commands run around one wizard step.
type StepHooks struct {
	OnEnter []*HookConfig `yaml:"on_enter"`
	OnExit  []*HookConfig `yaml:"on_exit"`
}

// HookConfig defines a single hook's configuration.
type HookConfig struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout"` // seconds, default 30
}

// DefaultTimeout is the default timeout for hook execution in seconds.
const DefaultTimeout = 30
