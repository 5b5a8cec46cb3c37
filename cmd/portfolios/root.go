package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

// hintError attaches an actionable hint to err without hiding it from errors.Is.
type hintError struct {
	err  error
	hint string
}

func (e *hintError) Error() string { return e.err.Error() + e.hint }
func (e *hintError) Unwrap() error { return e.err }

// withHint wraps err with hint. An empty hint returns err unchanged.
func withHint(err error, hint string) error {
	if err == nil || hint == "" {
		return err
	}
	return &hintError{err: err, hint: hint}
}

// newRootCmd assembles the command tree.
func newRootCmd(env *Environment) *cobra.Command {
	common := &commonFlags{}

	root := &cobra.Command{
		Use:   "portfolios",
		Short: "Build a static portfolio page from YAML project files",
		Long: `portfolios reads one YAML file per project, screenshots each demo with
headless Chrome, and renders a single index.html listing every project.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if common.quiet && common.verbose {
				return fmt.Errorf("%w: --quiet and --verbose are mutually exclusive", ErrUsage)
			}
			setMaxProcs(env, common.verbose)
			return nil
		},
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)
	root.SetIn(env.Stdin)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	addCommonFlags(root.PersistentFlags(), common)

	root.AddCommand(
		newBuildCmd(env, common),
		newMarkdownCmd(env),
		newDoctorCmd(env, common),
		newVersionCmd(env),
	)
	return root
}

// setMaxProcs aligns GOMAXPROCS with the container CPU quota.
// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
// in which case Go runtime defaults apply.
func setMaxProcs(env *Environment, verbose bool) {
	logf := func(string, ...interface{}) {}
	if verbose {
		logf = func(format string, args ...interface{}) {
			fmt.Fprintf(env.Stderr, format+"\n", args...)
		}
	}
	_, _ = maxprocs.Set(maxprocs.Logger(logf))
}

// run executes the CLI and returns the process exit code.
func run(args []string, env *Environment) int {
	ctx, stop := notifyContext(context.Background())
	defer stop()

	root := newRootCmd(env)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	// cobra reports unknown subcommands as plain errors.
	if strings.HasPrefix(err.Error(), "unknown command") && !errors.Is(err, ErrUsage) {
		err = fmt.Errorf("%w: %v", ErrUsage, err)
	}
	fmt.Fprintf(env.Stderr, "error: %v\n", err)
	return exitCodeFor(err)
}
