package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/harliandi/go-imgfit/internal/converter"
)

// Exit codes.
const (
	exitOK        = 0
	exitError     = 1
	exitInvalid   = 2
	exitDecode    = 3
	exitExhausted = 4
)

// usageError marks failures in argument or flag handling.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "imgfit:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ue usageError
	if errors.As(err, &ue) {
		return exitInvalid
	}
	switch converter.Status(err) {
	case converter.StatusInvalid, converter.StatusTooLarge:
		return exitInvalid
	case converter.StatusDecodeError:
		return exitDecode
	case converter.StatusExhausted:
		return exitExhausted
	}
	return exitError
}
