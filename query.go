package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/rustguide/internal/model"
	"github.com/phobologic/rustguide/internal/ranking"
	"github.com/phobologic/rustguide/internal/scopes"
	"github.com/phobologic/rustguide/internal/source"
	"github.com/phobologic/rustguide/internal/toon"
)

// request is one cursor position to resolve.
type request struct {
	file   string
	coords model.Coordinate
	// substitute names a file whose contents stand in for file, for
	// editors with unsaved buffers. "-" means standard input.
	substitute string
}

const positionArgs = "FILE LINE COL [SUBSTITUTE]"

func parseRequest(args []string) (request, error) {
	if len(args) < 3 || len(args) > 4 {
		return request{}, fmt.Errorf("expected %s, got %d arguments", positionArgs, len(args))
	}
	file, err := filepath.Abs(args[0])
	if err != nil {
		return request{}, fmt.Errorf("resolving %s: %w", args[0], err)
	}
	line, err := strconv.Atoi(args[1])
	if err != nil || line < 1 {
		return request{}, fmt.Errorf("invalid line %q", args[1])
	}
	col, err := strconv.Atoi(args[2])
	if err != nil || col < 0 {
		return request{}, fmt.Errorf("invalid column %q", args[2])
	}
	req := request{file: file, coords: model.Coordinate{Line: line, Column: col}}
	if len(args) == 4 {
		req.substitute = args[3]
	}
	return req, nil
}

// prepare installs the substitute contents, if any, and converts the cursor
// coordinates to a byte offset.
func (e *engine) prepare(req request, stdin io.Reader) (*source.Buffer, model.BytePos, error) {
	if req.substitute != "" {
		var (
			data []byte
			err  error
		)
		if req.substitute == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(req.substitute)
		}
		if err != nil {
			return nil, 0, fmt.Errorf("reading substitute for %s: %w", req.file, err)
		}
		e.session.CacheFileContents(req.file, string(data))
	}

	buf, err := e.session.LoadFile(req.file)
	if err != nil {
		return nil, 0, err
	}
	pos, ok := buf.CoordsToPoint(req.coords)
	if !ok {
		return nil, 0, fmt.Errorf("%s: no position %d:%d", req.file, req.coords.Line, req.coords.Column)
	}
	return buf, pos, nil
}

func (e *engine) complete(req request, stdin io.Reader) (out string, err error) {
	defer recoverRequest(&err)

	buf, pos, err := e.prepare(req, stdin)
	if err != nil {
		return "", err
	}
	code := buf.Src().Code()
	query := code[scopes.GetStartOfSearchExpr(code, pos):pos]

	ms := ranking.Select(e.resolver.Complete(req.file, pos), req.file, e.maxResults)
	return toon.Candidates(query, e.candidates(ms)), nil
}

func (e *engine) definition(req request, stdin io.Reader) (out string, err error) {
	defer recoverRequest(&err)

	buf, pos, err := e.prepare(req, stdin)
	if err != nil {
		return "", err
	}
	rng := scopes.ExpandSearchExpr(buf.Src().Code(), pos)
	query := buf.Text()[rng.Start:rng.End]

	var ms []model.Match
	if m, ok := e.resolver.FindDefinition(req.file, pos); ok {
		ms = append(ms, m)
	}
	return toon.Candidates(query, e.candidates(ms)), nil
}

// candidates converts match offsets to line and column for display.
func (e *engine) candidates(ms []model.Match) []toon.Candidate {
	out := make([]toon.Candidate, 0, len(ms))
	for _, m := range ms {
		c := toon.Candidate{Match: m}
		switch {
		case m.Coords != nil:
			c.Line, c.Column = m.Coords.Line, m.Coords.Column
		default:
			if buf, err := e.session.LoadFile(m.Filepath); err == nil {
				if coords, ok := buf.PointToCoords(m.Point); ok {
					c.Line, c.Column = coords.Line, coords.Column
				}
			}
		}
		out = append(out, c)
	}
	return out
}

// expr reports the scanner's view of the cursor position.
func (e *engine) expr(req request, stdin io.Reader) (out string, err error) {
	defer recoverRequest(&err)

	buf, pos, err := e.prepare(req, stdin)
	if err != nil {
		return "", err
	}
	src := buf.Src()
	code := src.Code()
	rng := scopes.ExpandSearchExpr(code, pos)
	scopeStart := scopes.ScopeStart(src, pos)
	ctx, compl, typ := scopes.SplitIntoContextAndCompletion(code[scopes.GetStartOfSearchExpr(code, pos):pos])

	fields := []toon.Field{
		{Key: "point", Value: strconv.Itoa(pos.Int())},
		{Key: "expr", Value: buf.Text()[rng.Start:rng.End]},
		{Key: "expr_range", Value: rng.String()},
		{Key: "context", Value: ctx},
		{Key: "completion", Value: compl},
		{Key: "completion_type", Value: typ.String()},
		{Key: "scope_start", Value: strconv.Itoa(scopeStart.Int())},
	}
	if start, ok := scopes.FindStmtStart(src, pos); ok {
		fields = append(fields, toon.Field{Key: "stmt_start", Value: strconv.Itoa(start.Int())})
	}
	if path := scopes.GetLocalModulePath(src, pos); len(path) > 0 {
		fields = append(fields, toon.Field{Key: "module_path", Value: strings.Join(path, "::")})
	}
	if start, ok := implStart(src, pos); ok {
		fields = append(fields, toon.Field{Key: "impl_start", Value: strconv.Itoa(start.Int())})
	}
	return toon.Fields(fields...), nil
}

// implStart is FindImplStart from the top of the file, for positions that
// may not be inside a block.
func implStart(src source.Src, pos model.BytePos) (start model.BytePos, ok bool) {
	defer func() {
		if recover() != nil {
			start, ok = 0, false
		}
	}()
	return scopes.FindImplStart(src, pos, 0)
}

type queryFunc func(e *engine, req request, stdin io.Reader) (string, error)

func (a *app) positionCmd(use, short, long string, fn queryFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " " + positionArgs,
		Short: short,
		Long:  long,
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseRequest(args)
			if err != nil {
				return err
			}
			e, err := a.newEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			out, err := fn(e, req, cmd.InOrStdin())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.stdout, out)
			return nil
		},
	}
}

func (a *app) completeCmd() *cobra.Command {
	return a.positionCmd("complete", "List completions for the partial path at the cursor",
		`Complete lists every declaration whose name starts with the partial
identifier before the cursor, resolving any leading path segments first.

Examples:
  rustguide complete src/main.rs 12 18
  cat unsaved.rs | rustguide complete src/main.rs 12 18 -`,
		(*engine).complete)
}

func (a *app) definitionCmd() *cobra.Command {
	return a.positionCmd("definition", "Find the declaration of the identifier at the cursor",
		`Definition resolves the path expression containing the cursor and prints
the declaration it refers to, if one is found.`,
		(*engine).definition)
}

func (a *app) exprCmd() *cobra.Command {
	return a.positionCmd("expr", "Show how the scanner sees the cursor position",
		`Expr prints the search expression, scope start, statement start and
enclosing impl block for a position. It is a debugging aid.`,
		(*engine).expr)
}
