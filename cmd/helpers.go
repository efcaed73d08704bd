package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
	"github.com/arcanum-sh/arcanum/internal/ui"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// startSpinner creates and starts a spinner with the given message when not in
// verbose or debug mode. Returns the spinner and a function that should be
// deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup
// function automatically calls ui.EnsureNewline() on the final message before
// printing it. This ensures consistent output formatting across all commands.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	err := s.Color("cyan")
	if err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	if !verbose && !debug {
		Logger.Debugf("Starting spinner in non-verbose mode")
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		// Restore log output first.
		if !verbose && !debug {
			Logger.Debugf("Restoring log output")
			log.SetOutput(os.Stdout)
		}

		// Ensure final message ends with a newline.
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		// Stop the spinner first to clear the spinner line.
		if !verbose && !debug {
			Logger.Debugf("Stopping spinner")
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// friendlyFailure maps the well-known workflow errors to an actionable final
// message. The second return value is false when the error is not one of the
// recognized conditions and should propagate instead.
func friendlyFailure(err error) (string, bool) {
	switch {
	case errors.Is(err, kerrors.ErrProjectNotInitialized):
		return color.RedString("✗") + " Arcanum has not been initialized\n" +
			color.CyanString("→") + " Run " + color.YellowString("arcanum init") + " first", true
	case errors.Is(err, kerrors.ErrFileNotManaged):
		return color.RedString("✗") + " This file has no entry in " + color.YellowString("arcanum.toml") + "\n" +
			color.CyanString("→") + " Add a " + color.YellowString("[files.<name>]") + " entry with its recipients first", true
	case errors.Is(err, kerrors.ErrIdentityNotFound):
		return color.RedString("✗") + " No identity file found\n" +
			color.CyanString("→") + " Pass one with " + color.YellowString("--identity <path>") +
			" or create " + color.YellowString("~/.ssh/id_ed25519"), true
	case errors.Is(err, kerrors.ErrNoMatchingRecipient):
		return color.RedString("✗") + " Your identity is not in this file's recipient set\n" +
			color.CyanString("→") + " Ask an admin to add your public key and rekey", true
	case errors.Is(err, kerrors.ErrAuthenticationFailure):
		return color.RedString("✗") + " The encrypted file failed authentication; it may have been tampered with\n" +
			color.RedString("Error: ") + err.Error(), true
	case errors.Is(err, kerrors.ErrMalformedBlob):
		return color.RedString("✗") + " The file is not a valid encrypted blob\n" +
			color.RedString("Error: ") + err.Error(), true
	case errors.Is(err, kerrors.ErrEmptyRecipients):
		return color.RedString("✗") + " The recipient set for this file is empty\n" +
			color.CyanString("→") + " Add recipients in " + color.YellowString("arcanum.toml"), true
	case errors.Is(err, kerrors.ErrPlaintextEmpty):
		return color.RedString("✗") + " Refusing to proceed with empty plaintext\n" +
			color.RedString("Error: ") + err.Error(), true
	}
	return "", false
}
