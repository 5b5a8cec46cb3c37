package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alnah/go-portfolios/internal/markdown"
)

// maxMarkdownSize caps markdown read from a file or stdin.
const maxMarkdownSize = 10 * 1024 * 1024

func newMarkdownCmd(env *Environment) *cobra.Command {
	flags := &markdownFlags{}

	cmd := &cobra.Command{
		Use:   "markdown [TEXT]",
		Short: "Convert GitHub Flavored Markdown to HTML",
		Long: `Converts markdown to an HTML fragment on stdout. Task lists, strikethrough,
tables and autolinks are supported. Without input, a short sample is converted.
Put TEXT after -- when it starts with a dash, such as a task list item.`,
		Example: `  portfolios markdown '* [x] done ~~scrapped~~'
  portfolios markdown -- '- [ ] open'
  portfolios markdown --file README.md
  cat notes.md | portfolios markdown --stdin`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := markdownInput(env, flags, args)
			if err != nil {
				return err
			}
			return runMarkdown(cmd.Context(), env, source)
		},
	}
	addMarkdownFlags(cmd.Flags(), flags)
	return cmd
}

// markdownInput picks exactly one source: TEXT, --file, --stdin, or the sample.
func markdownInput(env *Environment, flags *markdownFlags, args []string) (string, error) {
	if len(args) > 0 && (flags.file != "" || flags.stdin) {
		return "", fmt.Errorf("%w: TEXT cannot be combined with --file or --stdin", ErrUsage)
	}
	if flags.file != "" && flags.stdin {
		return "", fmt.Errorf("%w: --file and --stdin are mutually exclusive", ErrUsage)
	}

	switch {
	case len(args) == 1:
		return args[0], nil
	case flags.file != "":
		f, err := os.Open(flags.file)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrReadMarkdown, err)
		}
		defer f.Close()
		return readLimited(f)
	case flags.stdin:
		if env.Stdin == nil {
			return "", fmt.Errorf("%w: no standard input", ErrReadMarkdown)
		}
		return readLimited(env.Stdin)
	default:
		return markdown.DemoInput, nil
	}
}

func readLimited(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxMarkdownSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadMarkdown, err)
	}
	if len(data) > maxMarkdownSize {
		return "", fmt.Errorf("%w: input exceeds %d bytes", ErrReadMarkdown, maxMarkdownSize)
	}
	return string(data), nil
}

// runMarkdown converts source and writes the fragment to stdout.
func runMarkdown(ctx context.Context, env *Environment, source string) error {
	html, err := markdown.NewConverter().ToHTML(ctx, source)
	if err != nil {
		return err
	}
	_, err = io.WriteString(env.Stdout, html)
	return err
}
