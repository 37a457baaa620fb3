package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const endMarker = "END"

var errStdinSubstitute = errors.New("substitute \"-\" is not available in daemon mode")

func (a *app) daemonCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "daemon [DIR...]",
		Short: "Answer queries read line by line from standard input",
		Long: `Daemon keeps one file cache for the whole session and answers one query
per input line:

  complete FILE LINE COL [SUBSTITUTE]
  definition FILE LINE COL [SUBSTITUTE]
  expr FILE LINE COL [SUBSTITUTE]
  invalidate FILE
  quit

Each answer is followed by a line containing END. Failed queries print a
single "error: ..." line before END.

With --watch (or cache.watch in the config file), files changed on disk under
DIR (default: the current directory) are dropped from the cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.newEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			// Stop watching before the cache closes.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if watch || a.cfg.Cache.Watch {
				dirs := args
				if len(dirs) == 0 {
					dirs = []string{"."}
				}
				if err := e.session.Watch(ctx, dirs...); err != nil {
					return fmt.Errorf("watching %s: %w", strings.Join(dirs, ", "), err)
				}
				a.log.Debug().Strs("dirs", dirs).Msg("watching for changes")
			}
			return a.serve(ctx, e, cmd.InOrStdin())
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "drop cached files when they change on disk")
	return cmd
}

func (a *app) serve(ctx context.Context, e *engine, in io.Reader) error {
	commands := map[string]queryFunc{
		"complete":   (*engine).complete,
		"definition": (*engine).definition,
		"expr":       (*engine).expr,
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		name, args := fields[0], fields[1:]
		var (
			out string
			err error
		)
		switch name {
		case "quit":
			return nil
		case "invalidate":
			err = invalidate(e, args)
		default:
			fn, ok := commands[name]
			if !ok {
				err = fmt.Errorf("unknown command %q", name)
				break
			}
			out, err = a.query(e, fn, args)
		}

		if err != nil {
			a.log.Debug().Err(err).Str("command", name).Msg("query failed")
			_, _ = fmt.Fprintf(a.stdout, "error: %v\n", err)
		} else if out != "" {
			_, _ = fmt.Fprintln(a.stdout, out)
		}
		_, _ = fmt.Fprintln(a.stdout, endMarker)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading commands: %w", err)
	}
	return nil
}

func (a *app) query(e *engine, fn queryFunc, args []string) (string, error) {
	req, err := parseRequest(args)
	if err != nil {
		return "", err
	}
	if req.substitute == "-" {
		return "", errStdinSubstitute
	}
	return fn(e, req, nil)
}

func invalidate(e *engine, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected FILE, got %d arguments", len(args))
	}
	file, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[0], err)
	}
	e.session.RemoveOverlay(file)
	e.session.Invalidate(file)
	return nil
}
