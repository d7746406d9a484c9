// Package shell implements the line-oriented command interface: INSERT,
// GET, QUERY and the rest, read one command per line against the active
// database of a db.Manager.
//
// Mutating commands print "submitted <op-id>" as soon as the operation is
// queued. Their outcome is found with STATUS, awaited with WAIT, or read
// from the log.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adfharrison1/neemo/pkg/db"
	"github.com/adfharrison1/neemo/pkg/logging"
)

const prompt = "neemo> "

// Shell reads commands from in and writes results to out.
type Shell struct {
	mgr         *db.Manager
	in          *bufio.Scanner
	out         io.Writer
	format      Format
	interactive bool
	timeout     time.Duration
	logger      logging.Logger
}

// Option configures a Shell
type Option func(*Shell)

// WithFormat sets the output format
func WithFormat(f Format) Option {
	return func(s *Shell) { s.format = f }
}

// WithInteractive prints prompts and input hints
func WithInteractive(on bool) Option {
	return func(s *Shell) { s.interactive = on }
}

// WithTimeout bounds WAIT, BACKUP and RESTORE
func WithTimeout(d time.Duration) Option {
	return func(s *Shell) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger commands are reported to
func WithLogger(logger logging.Logger) Option {
	return func(s *Shell) { s.logger = logging.OrDiscard(logger) }
}

// New creates a shell over mgr.
func New(mgr *db.Manager, in io.Reader, out io.Writer, options ...Option) *Shell {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	s := &Shell{
		mgr:     mgr,
		in:      scanner,
		out:     out,
		format:  FormatJSON,
		timeout: 5 * time.Minute,
		logger:  logging.Discard,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// errQuit ends Run without an error.
var errQuit = errors.New("quit")

// Run executes commands until EXIT, end of input or ctx is cancelled.
// Command errors are printed and do not stop the loop.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.showPrompt(prompt)
		line, ok := s.readLine()
		if !ok {
			return s.in.Err()
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		err := s.execute(ctx, line)
		if errors.Is(err, errQuit) {
			fmt.Fprintln(s.out, "Exiting neemo...")
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			s.logger.Debugf("[shell] %q failed: %v", line, err)
		}
	}
}

func (s *Shell) execute(ctx context.Context, line string) error {
	name, rest := splitWord(line)
	cmd, ok := commands[strings.ToUpper(name)]
	if !ok {
		return fmt.Errorf("unknown command %q, type HELP for a list", name)
	}
	return cmd.run(ctx, s, rest)
}

func (s *Shell) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

// readBlock collects lines until an empty line, one of terminators, or end
// of input.
func (s *Shell) readBlock(hint string, terminators ...string) []string {
	var lines []string
	for {
		s.showPrompt(hint)
		line, ok := s.readLine()
		if !ok {
			return lines
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return lines
		}
		for _, term := range terminators {
			if strings.EqualFold(line, term) {
				return lines
			}
		}
		lines = append(lines, line)
	}
}

func (s *Shell) showPrompt(p string) {
	if s.interactive {
		fmt.Fprint(s.out, p)
	}
}

func (s *Shell) active() (*db.Database, error) {
	d := s.mgr.Active()
	if d == nil {
		return nil, errors.New("no database is open, use CREATE DATABASE or USE DATABASE")
	}
	return d, nil
}

func (s *Shell) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Shell) print(v interface{}) error {
	return render(s.out, s.format, v)
}

func (s *Shell) printf(format string, args ...interface{}) error {
	_, err := fmt.Fprintf(s.out, format+"\n", args...)
	return err
}

// splitWord returns the first whitespace-delimited word of line and the
// trimmed remainder.
func splitWord(line string) (string, string) {
	line = strings.TrimSpace(line)
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i+1:])
}
