// Package cmd implements the passh command line.
//
// passh runs a command under a pseudo-terminal, watches its output for
// password prompts, and answers them with a pre-configured password, so
// tools that insist on reading from a terminal can run unattended.
package cmd

import (
	"os"
	"time"

	"github.com/creack/pty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/clarkwang/passh/internal/config"
	"github.com/clarkwang/passh/internal/exitcode"
	"github.com/clarkwang/passh/internal/password"
	"github.com/clarkwang/passh/internal/prompt"
	"github.com/clarkwang/passh/internal/ptyspawn"
	"github.com/clarkwang/passh/internal/supervisor"
	"github.com/clarkwang/passh/internal/termmode"
)

var (
	flagTries         int
	flagFatalTries    bool
	flagIgnoreCase    bool
	flagNohup         bool
	flagPassword      string
	flagPrompt        string
	flagYesNo         string
	flagTimeout       int
	flagFatalNoPrompt bool
	flagAutoYesNo     bool
	flagLogTo         string
	flagLogFrom       string
	flagConfig        string
)

// childStatus carries the supervised child's exit status out of runRoot.
var childStatus int

var rootCmd = &cobra.Command{
	Use:   "passh [flags] COMMAND [ARGS...]",
	Short: "Run a command in a pty and answer its password prompts",
	Long: `passh runs COMMAND under a pseudo-terminal, scans its output for a
password prompt, and types the configured password for you.

When standard input is a terminal, your keystrokes and window resizes are
forwarded to the command; the moment you start typing, passh stops
answering prompts and the session is yours.

Examples:
  passh -p secret ssh user@host
  passh -p env:SSH_PASS -c 1 -C ssh user@host true
  passh -y -p file:$HOME/.secret -t 30 -T scp file user@host:
`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	f := rootCmd.Flags()
	// Option parsing stops at the first non-option, so COMMAND's own
	// flags pass through untouched.
	f.SetInterspersed(false)

	f.IntVarP(&flagTries, "max-tries", "c", 0,
		"send at most N passwords (0 means no limit)")
	f.BoolVarP(&flagFatalTries, "fatal-tries", "C", false,
		"exit if prompted for the N+1th password")
	f.BoolVarP(&flagIgnoreCase, "ignore-case", "i", false,
		"case-insensitive prompt matching")
	f.BoolVarP(&flagNohup, "nohup", "n", false,
		"make the child ignore SIGHUP (e.g. for `ssh -f')")
	f.StringVarP(&flagPassword, "password", "p", config.DefaultPassword,
		"the password, or env:NAME, or file:PATH")
	f.StringVarP(&flagPrompt, "prompt", "P", config.DefaultPrompt,
		"regexp (BRE) for the password prompt")
	f.StringVarP(&flagYesNo, "yesno-prompt", "Y", config.DefaultYesNo,
		"regexp (BRE) for the `(yes/no)?' prompt")
	f.IntVarP(&flagTimeout, "timeout", "t", 0,
		"seconds to wait for the next password prompt (0 means no timeout)")
	f.BoolVarP(&flagFatalNoPrompt, "fatal-no-prompt", "T", false,
		"exit if timed out waiting for the password prompt")
	f.BoolVarP(&flagAutoYesNo, "auto-yesno", "y", false,
		"auto answer `(yes/no)?' questions")
	f.StringVarP(&flagLogTo, "log-to-pty", "l", "",
		"save data written to the pty")
	f.StringVarP(&flagLogFrom, "log-from-pty", "L", "",
		"save data read from the pty")
	f.StringVar(&flagConfig, "config", "",
		"defaults file (default $PASSH_CONFIG or ~/.config/passh/config.yaml)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return exitcode.Errorf(exitcode.Usage, "%v", err)
	})
	rootCmd.AddCommand(versionCmd)
}

// Execute parses the command line and runs the supervisor, returning the
// process exit code: the child's own status on success, 20x on failure.
func Execute() int {
	// Parse from a private copy, then scrub password values from the
	// retained argument vector so later diagnostics never echo them.
	argv := make([]string, len(os.Args)-1)
	copy(argv, os.Args[1:])
	rootCmd.SetArgs(argv)
	password.MaskArgs(os.Args)

	if err := rootCmd.Execute(); err != nil {
		exitcode.Report(os.Stderr, err)
		return exitcode.CodeOf(err)
	}
	return childStatus
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		if cmd.Flags().NFlag() == 0 {
			return cmd.Help()
		}
		return exitcode.Errorf(exitcode.Usage, "no command specified")
	}

	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	matcher, err := prompt.NewMatcher(cfg.PromptPattern, cfg.YesNoPattern, cfg.IgnoreCase)
	if err != nil {
		return exitcode.Errorf(exitcode.Usage, "%v", err)
	}

	stdinFd := int(os.Stdin.Fd())
	stdinTTY := term.IsTerminal(stdinFd)

	spawnOpts := ptyspawn.Options{IgnoreHangup: cfg.NohupChild}
	if stdinTTY {
		tio, err := termmode.Get(stdinFd)
		if err != nil {
			return exitcode.Sysf(err, "tcgetattr stdin")
		}
		ws, err := pty.GetsizeFull(os.Stdin)
		if err != nil {
			return exitcode.Sysf(err, "get window size")
		}
		spawnOpts.Termios = tio
		spawnOpts.Winsize = ws
	}

	child, err := ptyspawn.Start(cfg.Command, spawnOpts)
	if err != nil {
		return exitcode.Sysf(err, "spawn child")
	}

	// Raw mode only when we own both ends of the terminal; `passh ls -l |
	// less` must leave the tty cooked for the pager.
	if stdinTTY && term.IsTerminal(int(os.Stdout.Fd())) {
		state, err := termmode.EnterRaw(stdinFd)
		if err != nil {
			return exitcode.Sysf(err, "set raw mode")
		}
		defer state.Restore()
	}

	sup := supervisor.New(child, supervisor.Options{
		Config:         cfg,
		Matcher:        matcher,
		InteractiveTTY: stdinTTY,
	})
	status, err := sup.Run(cmd.Context())
	if err != nil {
		return err
	}
	childStatus = status
	return nil
}

// buildConfig layers the defaults file under the command-line flags:
// built-ins first, then the file, then every flag the user actually set.
func buildConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg := config.Default()

	path := flagConfig
	explicit := path != ""
	if !explicit {
		path = config.DefaultFilePath()
	}
	if path != "" {
		file, err := config.LoadFile(path)
		if err != nil {
			return cfg, exitcode.Errorf(exitcode.Usage, "%v", err)
		}
		if file == nil && explicit {
			return cfg, exitcode.Errorf(exitcode.Usage, "config file %s not found", path)
		}
		file.Apply(&cfg)
	}

	f := cmd.Flags()
	if f.Changed("max-tries") {
		cfg.MaxTries = flagTries
	}
	if f.Changed("fatal-tries") {
		cfg.FatalMoreTries = flagFatalTries
	}
	if f.Changed("ignore-case") {
		cfg.IgnoreCase = flagIgnoreCase
	}
	if f.Changed("nohup") {
		cfg.NohupChild = flagNohup
	}
	if f.Changed("prompt") {
		cfg.PromptPattern = flagPrompt
	}
	if f.Changed("yesno-prompt") {
		cfg.YesNoPattern = flagYesNo
	}
	if f.Changed("timeout") {
		cfg.Timeout = time.Duration(flagTimeout) * time.Second
	}
	if f.Changed("fatal-no-prompt") {
		cfg.FatalNoPrompt = flagFatalNoPrompt
	}
	if f.Changed("auto-yesno") {
		cfg.AutoYesNo = flagAutoYesNo
	}
	if f.Changed("log-to-pty") {
		cfg.LogToPty = flagLogTo
	}
	if f.Changed("log-from-pty") {
		cfg.LogFromPty = flagLogFrom
	}
	if f.Changed("password") {
		pw, err := password.Resolve(flagPassword)
		if err != nil {
			return cfg, exitcode.Errorf(exitcode.Usage, "failed to get password: %v", err)
		}
		cfg.Password = pw
	}

	cfg.Command = args
	if err := cfg.Validate(); err != nil {
		return cfg, exitcode.Errorf(exitcode.Usage, "%v", err)
	}
	return cfg, nil
}
