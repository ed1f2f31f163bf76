// Package main provides the CLI entry point for Bookshelf.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"bookshelf/internal/config"
	"bookshelf/internal/console"
	"bookshelf/internal/logging"
	"bookshelf/internal/orchestrator"
	"bookshelf/internal/output"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const usage = `Usage: bookshelf [-c config] [-v] [command]

Commands:
  run              Interactive menu (default)
  serve            Serve the HTTP API
  search <prefix>  Print books whose title starts with prefix
  history [n]      Print the last n journal events (default 20)
  history --sessions
                   Print one line per recorded session
  version          Print the version
`

// options holds the parsed command line.
type options struct {
	configPath string
	verbose    bool
	command    string
	args       []string
}

func parseArgs(args []string) (*options, error) {
	opts := &options{command: "run"}

	i := 0
	for ; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-c", "--config":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a path", arg)
			}
			i++
			opts.configPath = args[i]
			continue
		case "-v", "--verbose":
			opts.verbose = true
			continue
		case "-h", "--help":
			opts.command = "help"
			return opts, nil
		}
		if len(arg) > 1 && arg[0] == '-' {
			return nil, fmt.Errorf("unknown flag %s", arg)
		}
		break
	}

	if i < len(args) {
		opts.command = args[i]
		opts.args = args[i+1:]
	}

	switch opts.command {
	case "run", "serve", "version", "help":
		if len(opts.args) > 0 {
			return nil, fmt.Errorf("%s takes no arguments", opts.command)
		}
	case "search":
		if len(opts.args) != 1 {
			return nil, errors.New("search requires exactly one prefix")
		}
	case "history":
		if len(opts.args) > 1 {
			return nil, errors.New("history takes at most one count")
		}
		if len(opts.args) == 1 && opts.args[0] != "--sessions" {
			if n, err := strconv.Atoi(opts.args[0]); err != nil || n < 1 {
				return nil, fmt.Errorf("invalid history count %q", opts.args[0])
			}
		}
	default:
		return nil, fmt.Errorf("unknown command %q", opts.command)
	}
	return opts, nil
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n%s", err, usage)
		os.Exit(2)
	}

	if err := run(opts, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *options, stdin io.Reader, stdout, stderr io.Writer) error {
	switch opts.command {
	case "help":
		fmt.Fprint(stdout, usage)
		return nil
	case "version":
		fmt.Fprintf(stdout, "bookshelf %s\n", version)
		return nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Verbose = true
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: stderr,
	})

	outCfg := output.DefaultConfig()
	outCfg.Verbose = cfg.Verbose
	outCfg.Writer = stdout
	outCfg.ErrWriter = stderr
	out := output.New(outCfg)

	app, err := orchestrator.New(cfg, version)
	if err != nil {
		return err
	}

	cmdErr := dispatch(app, opts, stdin, out)

	summary, closeErr := app.Close()
	if closeErr != nil {
		logging.Warn().Err(closeErr).Msg("Failed to close session")
	} else if summary.Changed() {
		out.Verbose("%s", summary)
	}
	return cmdErr
}

func dispatch(app *orchestrator.Orchestrator, opts *options, stdin io.Reader, out *output.Output) error {
	switch opts.command {
	case "serve":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Serve(ctx)

	case "search":
		results := app.Catalog().Search(opts.args[0])
		if len(results) == 0 {
			out.Info("No matches found.")
			return nil
		}
		out.Books(results, false)
		return nil

	case "history":
		reader := app.History()
		if reader == nil {
			return errors.New("the audit journal is disabled")
		}
		if len(opts.args) == 1 && opts.args[0] == "--sessions" {
			sessions, err := reader.ListSessions()
			if err != nil {
				return err
			}
			out.Sessions(sessions)
			return nil
		}
		n := console.HistoryLimit
		if len(opts.args) == 1 {
			n, _ = strconv.Atoi(opts.args[0])
		}
		events, err := reader.Recent(n)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			out.Info("No activity recorded yet.")
			return nil
		}
		out.Events(events)
		return nil

	default:
		if !console.IsInteractive() {
			out.Verbose("stdin is not a terminal; reading menu choices from input")
		}
		return app.RunConsole(stdin, out)
	}
}
