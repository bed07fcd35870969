// Package maincmd wires spec.md §6's CLI surface onto the cfront library
// (the repository's root package): a flat set of flags, no subcommands.
// Adapted from the teacher's subcommand-dispatching Cmd
// (mna/nenuphar's internal/maincmd, whose buildCmds reflection dispatched
// a <command> argument to a same-named method) since spec.md §6's CLI
// table has no <command> notion -- every flag composes directly against
// one or more input paths, or stdin via "-".
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	cfront "github.com/mna/cfront"
	"github.com/mna/cfront/lang/ast"
	"github.com/mna/mainer"
)

const binName = "cfront"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <path>... | -
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <path>... | -
       %[1]s -h|--help
       %[1]s -v|--version

C11/C23 preprocessor and parser front end.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -I path                   Add a user include search path.
       --isystem path            Add a system include search path.
       -D name[=val]             Define a macro (val defaults to "1").
       -U name                   Undefine a macro.
       -a --ast                  Print the parsed AST as S-expressions.
       -P --print-tokens         Print the token stream.
       -E --preprocess           Print preprocessed source.
       -j --json                 Emit a JSON declaration summary.
       -X --no-preprocess        Skip the preprocessor (tokenize only).
       -o file                   Write output to file (default stdout).
       --max-errors N            Bound on collected errors (default 20).
       --Werror                  Warnings count as errors.
       --embed-limit SIZE        Soft size cap for #embed (K/M/G/B suffix).
       --embed-hard-limit        Exceeding --embed-limit is a hard error.

More information on the %[1]s repository:
       https://github.com/mna/cfront
`, binName)
)

// Cmd is spec.md §6's CLI surface, bound via github.com/mna/mainer's
// struct-tag flag parser exactly as the teacher's maincmd.Cmd is.
// Repeatable flags (-I/--isystem/-D/-U) are bound to []string fields, the
// slice-field convention used for repeatable flags in struct-tag-driven
// CLIs throughout the example pack (see DESIGN.md's mainer entry).
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	UserIncludes   []string `flag:"I"`
	SystemIncludes []string `flag:"isystem"`
	Defines        []string `flag:"D"`
	Undefs         []string `flag:"U"`

	PrintAST     bool `flag:"a,ast"`
	PrintTokens  bool `flag:"P,print-tokens"`
	Preprocess   bool `flag:"E,preprocess"`
	JSON         bool `flag:"j,json"`
	NoPreprocess bool `flag:"X,no-preprocess"`

	Output         string `flag:"o"`
	MaxErrors      int    `flag:"max-errors"`
	Werror         bool   `flag:"Werror"`
	EmbedLimit     string `flag:"embed-limit"`
	EmbedHardLimit bool   `flag:"embed-hard-limit"`

	args []string
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("no input file specified")
	}
	return nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

// parseEmbedLimit parses a SIZE[K|M|G|B] string per spec.md §6's
// --embed-limit flag.
func parseEmbedLimit(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'K', 'k':
		mult, s = 1<<10, s[:len(s)-1]
	case 'M', 'm':
		mult, s = 1<<20, s[:len(s)-1]
	case 'G', 'g':
		mult, s = 1<<30, s[:len(s)-1]
	case 'B', 'b':
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid --embed-limit %q: %w", s, err)
	}
	return n * mult, nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false, // leaving this here for now in case some flags can use this
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := printError(stdio, c.run(ctx, stdio)); err != nil {
		return mainer.Failure
	}
	return mainer.Success
}

// run builds a Session from the parsed flags and drives it over every
// input path, per spec.md §6's CLI-over-library shape.
func (c *Cmd) run(ctx context.Context, stdio mainer.Stdio) error {
	embedLimit, err := parseEmbedLimit(c.EmbedLimit)
	if err != nil {
		return err
	}

	sess := cfront.New()
	defer sess.Destroy()

	sess.EnableCollectErrors(true)
	if c.MaxErrors > 0 {
		sess.SetMaxErrors(c.MaxErrors)
	}
	sess.SetWarningsAsErrors(c.Werror)
	sess.SetEmbedLimit(embedLimit, c.EmbedHardLimit)
	sess.SetUseEmbeddedStdlib(true)

	for _, path := range c.UserIncludes {
		sess.AddUserInclude(path)
	}
	for _, path := range c.SystemIncludes {
		sess.AddSystemInclude(path)
	}
	for _, d := range c.Defines {
		name, body, _ := strings.Cut(d, "=")
		sess.Define(name, body)
	}
	for _, name := range c.Undefs {
		sess.Undef(name)
	}

	out := io.Writer(stdio.Stdout)
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	needParse := c.PrintAST || c.JSON
	var progLists [][]*ast.Obj

	for _, path := range c.args {
		if err := ctx.Err(); err != nil {
			return err
		}

		var res cfront.PreprocessResult
		var rerr error
		if c.NoPreprocess {
			res, rerr = sess.Tokenize(path)
		} else {
			res, rerr = sess.Preprocess(path)
		}
		if rerr != nil {
			return rerr
		}

		if c.PrintTokens {
			if err := sess.PrintTokens(out, res.Tokens); err != nil {
				return err
			}
		}
		if c.Preprocess {
			if err := sess.OutputPreprocessed(out, res.Tokens); err != nil {
				return err
			}
		}

		if needParse {
			objs, perr := sess.Parse(res)
			if perr != nil {
				return perr
			}
			progLists = append(progLists, objs)
			if c.PrintAST {
				if err := sess.PrintAST(out, objs); err != nil {
					return err
				}
			}
		}
	}

	if c.JSON {
		linked, lerr := sess.Link(progLists...)
		if lerr != nil {
			return lerr
		}
		if err := sess.OutputJSON(out, linked); err != nil {
			return err
		}
	}

	if sess.HasErrors() {
		sess.PrintAllErrors(stdio.Stderr)
		return fmt.Errorf("%d error(s) encountered", sess.ErrorCount())
	}
	return nil
}
