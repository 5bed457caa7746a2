// Package config holds the immutable run configuration for the supervisor
// and loads optional defaults from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Built-in defaults. The prompt patterns are POSIX basic regular
// expressions, matched against the tail of the pty output window.
const (
	DefaultPassword = "password"
	DefaultPrompt   = `[Pp]assword: \{0,1\}$`
	DefaultYesNo    = `(yes/no)? \{0,1\}$`
)

// Config is the run configuration. It is built once at startup and never
// mutated afterwards.
type Config struct {
	// Password is the byte string injected when the prompt matches.
	Password string

	// PromptPattern matches the password prompt (BRE).
	PromptPattern string

	// YesNoPattern matches the optional "(yes/no)?" prompt (BRE).
	YesNoPattern string

	// IgnoreCase makes both patterns match case-insensitively.
	IgnoreCase bool

	// MaxTries bounds password injections; 0 means unlimited.
	MaxTries int

	// FatalMoreTries exits with the max-tries code on the N+1th prompt
	// instead of silently giving up.
	FatalMoreTries bool

	// Timeout is how long to wait for the next prompt; 0 disables.
	Timeout time.Duration

	// FatalNoPrompt treats a timeout before the first prompt as fatal.
	FatalNoPrompt bool

	// AutoYesNo answers "yes" to a yes/no prompt seen before the first
	// password prompt.
	AutoYesNo bool

	// NohupChild makes the child ignore SIGHUP.
	NohupChild bool

	// LogToPty and LogFromPty, when set, mirror bytes written toward and
	// read from the pty into the named files.
	LogToPty   string
	LogFromPty string

	// Command is the argument vector executed in the child.
	Command []string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Password:      DefaultPassword,
		PromptPattern: DefaultPrompt,
		YesNoPattern:  DefaultYesNo,
	}
}

// Validate reports the first structural problem with the configuration.
func (c *Config) Validate() error {
	if c.PromptPattern == "" {
		return errors.New("empty password prompt pattern")
	}
	if c.YesNoPattern == "" {
		return errors.New("empty yes/no prompt pattern")
	}
	if len(c.Command) == 0 {
		return errors.New("no command specified")
	}
	if c.MaxTries < 0 {
		return fmt.Errorf("negative try count %d", c.MaxTries)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", c.Timeout)
	}
	return nil
}

// File is the optional YAML defaults file. Pointer fields distinguish
// "absent" from zero values; absent keys leave the built-in default alone.
type File struct {
	Password       *string `yaml:"password"`
	Prompt         *string `yaml:"prompt"`
	YesNoPrompt    *string `yaml:"yesno_prompt"`
	IgnoreCase     *bool   `yaml:"ignore_case"`
	MaxTries       *int    `yaml:"max_tries"`
	FatalMoreTries *bool   `yaml:"fatal_tries"`
	TimeoutSec     *int    `yaml:"timeout"`
	FatalNoPrompt  *bool   `yaml:"fatal_no_prompt"`
	AutoYesNo      *bool   `yaml:"auto_yesno"`
	Nohup          *bool   `yaml:"nohup"`
	LogToPty       *string `yaml:"log_to_pty"`
	LogFromPty     *string `yaml:"log_from_pty"`
}

// DefaultFilePath returns the defaults-file location: $PASSH_CONFIG when
// set, else ~/.config/passh/config.yaml.
func DefaultFilePath() string {
	if p := os.Getenv("PASSH_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "passh", "config.yaml")
}

// LoadFile parses the defaults file at path. A missing file yields (nil,
// nil) so the caller can treat the default location as optional.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &f, nil
}

// Apply copies every present defaults-file field onto c.
func (f *File) Apply(c *Config) {
	if f == nil {
		return
	}
	if f.Password != nil {
		c.Password = *f.Password
	}
	if f.Prompt != nil {
		c.PromptPattern = *f.Prompt
	}
	if f.YesNoPrompt != nil {
		c.YesNoPattern = *f.YesNoPrompt
	}
	if f.IgnoreCase != nil {
		c.IgnoreCase = *f.IgnoreCase
	}
	if f.MaxTries != nil {
		c.MaxTries = *f.MaxTries
	}
	if f.FatalMoreTries != nil {
		c.FatalMoreTries = *f.FatalMoreTries
	}
	if f.TimeoutSec != nil {
		c.Timeout = time.Duration(*f.TimeoutSec) * time.Second
	}
	if f.FatalNoPrompt != nil {
		c.FatalNoPrompt = *f.FatalNoPrompt
	}
	if f.AutoYesNo != nil {
		c.AutoYesNo = *f.AutoYesNo
	}
	if f.Nohup != nil {
		c.NohupChild = *f.Nohup
	}
	if f.LogToPty != nil {
		c.LogToPty = *f.LogToPty
	}
	if f.LogFromPty != nil {
		c.LogFromPty = *f.LogFromPty
	}
}
