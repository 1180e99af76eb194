package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/config"
	"github.com/kingrea/coursenobi/internal/render"
)

const (
	exitOK       = 0
	exitSchedule = 1
	exitUsage    = 2
)

const usage = `usage: coursenobi <command> [flags]

commands:
  schedule   plan quarters for a request (default)
  parse      parse one requirement string
  init       write a default coursenobi.yaml

run "coursenobi <command> -h" for the flags of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	command := "schedule"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}
	cli := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	switch command {
	case "schedule":
		return cli.schedule(ctx, args)
	case "parse":
		return cli.parse(args)
	case "init":
		return cli.init(args)
	case "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprint(stderr, usage)
		return cli.fail(render.FormatText, fmt.Errorf("unknown command %q", command))
	}
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// fail prints err and returns its exit code. Structured formats go to stdout
// so callers parsing the output see the failure too.
func (c *cli) fail(format render.Format, err error) int {
	if format == render.FormatJSON || format == render.FormatYAML {
		if werr := render.Error(c.stdout, err, format); werr != nil {
			fmt.Fprintln(c.stderr, werr)
		}
		return exitCode(err)
	}
	body := render.ErrorBody(err)
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(c.stderr, "error")
	fmt.Fprintf(c.stderr, " [%s] %s", body.Kind, body.Message)
	if body.Subject != "" {
		color.New(color.Faint).Fprintf(c.stderr, " (%s)", body.Subject)
	}
	fmt.Fprintln(c.stderr)
	return exitCode(err)
}

func (c *cli) warn(warnings []apperrors.Warning) {
	yellow := color.New(color.FgYellow)
	for _, w := range warnings {
		yellow.Fprint(c.stderr, "warning ")
		fmt.Fprintln(c.stderr, w.String())
	}
}

func (c *cli) note(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(c.stderr, format+"\n", args...)
}

// exitCode is 1 when the request was understood but cannot be scheduled and
// 2 for everything wrong with the input.
func exitCode(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindUnsatisfiable,
		apperrors.KindEnumerationTooLarge,
		apperrors.KindCapacityExceeded,
		apperrors.KindDependencyCycle:
		return exitSchedule
	}
	if errors.Is(err, context.Canceled) {
		return exitSchedule
	}
	return exitUsage
}

func (c *cli) init(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	configPath := fs.String("config", "", "path of the config file to write (default coursenobi.yaml or $COURSENOBI_CONFIG)")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	path := config.Resolve(*configPath)
	if err := config.WriteDefault(path, *force); err != nil {
		return c.fail(render.FormatText, err)
	}
	c.note("wrote %s", path)
	return exitOK
}

func loadConfig(path string, remaps keyValueFlag) (config.Config, error) {
	cfg, err := config.Load(config.Resolve(path))
	if err != nil {
		return config.Config{}, err
	}
	for _, entry := range remaps {
		if err := cfg.AddRemap(entry); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// interactiveStdin reports whether r is a terminal, where reading a request
// would block waiting for the user.
func interactiveStdin(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
