// Command tokfuzz drives the streaming JSON tokenizer through the
// conformance checker.
//
// Commands:
//
//	tokfuzz check [--seed N] [--quirks] [file|-]...
//	    Run one session per input and report its outcome.
//
//	tokfuzz tokens [--seed N | --quirk name...] [file|-]
//	    Print the token stream for one input.
//
//	tokfuzz campaign --config campaign.yaml [--workers N] [--findings path]
//	    Run many seeds over a corpus and collect violations.
//
//	tokfuzz report --findings path [--summary path]
//	    Render a findings file and, optionally, a campaign summary.
//
// Exit codes:
//
//	0  success
//	2  the engine rejected an input, or bad usage
//	3  protocol violation
//	10 internal error
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

const (
	exitSuccess   = 0
	exitInvalid   = 2
	exitViolation = 3
	exitInternal  = 10

	// maxInputSize bounds check and tokens inputs.
	maxInputSize = 64 << 20
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "tokfuzz",
		Usage:     "conformance driver for the streaming JSON tokenizer",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		// Exit codes are mapped by run, never by os.Exit inside the app.
		ExitErrHandler: func(*cli.Context, error) {},
		Action:         rootAction,
		Commands: []*cli.Command{
			checkCommand(),
			tokensCommand(),
			campaignCommand(),
			reportCommand(),
		},
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := newApp(stdin, stdout, stderr)
	err := app.RunContext(ctx, append([]string{app.Name}, args...))
	return exitCodeFor(stderr, err)
}

// rootAction runs when no command matched.
func rootAction(c *cli.Context) error {
	if c.NArg() > 0 {
		return cli.Exit(fmt.Sprintf("error: unknown command: %s", c.Args().First()), exitInvalid)
	}
	if err := cli.ShowAppHelp(c); err != nil {
		return err
	}
	return cli.Exit("", exitInvalid)
}

// exitCodeFor prints err and maps it to a process exit code.
func exitCodeFor(stderr io.Writer, err error) int {
	if err == nil {
		return exitSuccess
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			_, _ = fmt.Fprintln(stderr, msg)
		}
		return code
	}

	var te *tokerr.Error
	if errors.As(err, &te) {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return te.Class.ExitCode()
	}

	// Flag and argument errors from the cli package.
	_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
	return tokerr.CLIUsage.ExitCode()
}

// classified turns err into a cli exit error carrying its class's code.
func classified(err error) error {
	return cli.Exit(fmt.Sprintf("error: %v", err), tokerr.ClassOf(err).ExitCode())
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return readBounded(stdin, maxInputSize)
	}
	f, err := os.Open(path) //nolint:gosec // input path is explicit operator input.
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	data, err := readBounded(f, maxInputSize)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", path, err)
	}
	return data, nil
}

func readBounded(r io.Reader, maxSize int) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(maxSize)+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxSize {
		return nil, fmt.Errorf("input exceeds maximum size %d bytes", maxSize)
	}
	return data, nil
}
