// rustguide resolves Rust symbols for editor completion and go-to-definition.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/phobologic/rustguide/internal/config"
	"github.com/phobologic/rustguide/internal/fileres"
	"github.com/phobologic/rustguide/internal/nameres"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// app holds the state shared by all subcommands of one invocation.
type app struct {
	configFile string
	verbose    bool

	cfg    *config.Config
	log    zerolog.Logger
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "rustguide",
		Short: "Rust completion and go-to-definition without a compiler",
		Long: `rustguide finds the declarations a Rust identifier can refer to by scanning
source text: local bindings, items of enclosing scopes and modules, use
imports (including globs and renames), and items of dependent crates and the
standard library.

Positions are given as FILE LINE COL with a 1-based line and a 0-based
character column. Output is TOON.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is ./.rustguide.yaml, then $HOME/.rustguide.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		a.completeCmd(),
		a.definitionCmd(),
		a.exprCmd(),
		a.outlineCmd(),
		a.daemonCmd(),
		newInitCmd(stdout, stderr),
	)
	return root
}

// setup loads configuration and configures logging before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewLoader(".", a.configFile).Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if a.verbose {
		level = zerolog.DebugLevel
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: a.stderr, NoColor: true}).
		Level(level).
		With().Timestamp().Logger()
	log.Logger = a.log
	return nil
}

// engine is the resolution stack built from the loaded configuration.
type engine struct {
	session    *fileres.Session
	resolver   *nameres.Resolver
	maxResults int
}

func (a *app) newEngine(ctx context.Context) (*engine, error) {
	session, err := fileres.NewSession(
		fileres.WithLogger(a.log),
		fileres.WithCacheCapacity(a.cfg.Cache.CapacityBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	rustSrc := config.ResolveRustSrc(ctx, a.cfg)
	if rustSrc == "" {
		a.log.Warn().Msg("rust source not found; standard library items will not resolve")
	}
	locator := fileres.NewLocator(session, rustSrc, a.cfg.CargoHome, fileres.WithLogger(a.log))

	return &engine{
		session:    session,
		resolver:   nameres.New(session, locator, nameres.WithLogger(a.log)),
		maxResults: a.cfg.Output.MaxResults,
	}, nil
}

func (e *engine) Close() {
	e.session.Close()
}

var errInternal = errors.New("internal error")

// recoverRequest turns a panic in one request into an error so a malformed
// input cannot take down a long-running process.
func recoverRequest(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", errInternal, r)
	}
}
