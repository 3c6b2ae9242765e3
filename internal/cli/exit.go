package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// usageError marks a CLI-level input mistake (bad flag combination, wrong
// argument count) that should exit 1, as opposed to an operational
// failure (store/connector/embedder error) which exits 2.
type usageError struct{ err error }

func (u *usageError) Error() string { return u.err.Error() }
func (u *usageError) Unwrap() error { return u.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// Execute runs the root command and exits with codes: 0 success, 1
// usage error, 2 operational failure.
func Execute() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)

		var uerr *usageError
		if errors.As(err, &uerr) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
