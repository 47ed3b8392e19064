// Command nk is a CLI client for the notes service.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/and161185/notekeeper/internal/errs"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	c := &cli{in: in, out: out, errOut: errOut}
	cmd := c.rootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	c.close()
	if err != nil {
		fail(errOut, err)
		return 1
	}
	return 0
}

// fail prints err for a human. Server messages are shown with their status.
func fail(w io.Writer, err error) {
	var apiErr *errs.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		fmt.Fprintf(w, "error: %s (status %d)\n", apiErr.Message, apiErr.Status)
	default:
		fmt.Fprintf(w, "error: %v\n", err)
	}
}
