// Package main is mmoctl, a command-line game client driving the network gateway.
package main

import (
	"fmt"
	"os"

	"mmoclient/internal/pkg/errs"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mmoctl:", describe(err))
		os.Exit(1)
	}
}

// describe renders gateway outcomes the way the game UI would show them.
func describe(err error) string {
	customErr, ok := errs.As(err)
	if !ok {
		return err.Error()
	}

	switch {
	case customErr.Code == errs.ErrRequestFailed && customErr.Body != "":
		return fmt.Sprintf("%s (HTTP %d: %s)", customErr.Message, customErr.Status, customErr.Body)
	case customErr.Status != 0:
		return fmt.Sprintf("%s (HTTP %d)", customErr.Message, customErr.Status)
	default:
		return customErr.Message
	}
}
