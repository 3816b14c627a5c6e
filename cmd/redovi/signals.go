package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"redovi/internal/abort"
	"redovi/internal/logging"
)

// forceExitCode is used when a second interrupt arrives before the running
// tool has exited.
const forceExitCode = 130

var exitProcess = os.Exit

// watchSignals turns the first SIGINT/SIGTERM into an abort request and exits
// immediately on the second. The returned function stops watching.
func watchSignals(token *abort.Token, logger *slog.Logger, errOut io.Writer) func() {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go handleSignals(sigChan, done, token, logger, errOut)

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

func handleSignals(sigChan <-chan os.Signal, done <-chan struct{}, token *abort.Token, logger *slog.Logger, errOut io.Writer) {
	for {
		select {
		case <-done:
			return
		case sig := <-sigChan:
			if token.Abort() {
				logging.WarnWithContext(logger, "abort requested", "abort_requested",
					logging.String("signal", sig.String()),
					logging.String(logging.FieldImpact, "current file stops; remaining files are skipped"),
				)
				fmt.Fprintln(errOut, "\nAbort requested; waiting for the running tool to exit (interrupt again to force)")
				continue
			}
			fmt.Fprintln(errOut, "\nForced exit")
			exitProcess(forceExitCode)
		}
	}
}
