package cmd

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"
)

// promptPassphrase reads a passphrase from the terminal without echo.
// When stdin is not a terminal (scripts, pipes), it falls back to the
// SDKEYS_PASSPHRASE environment variable.
func promptPassphrase(prompt string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		if passphrase := os.Getenv("SDKEYS_PASSPHRASE"); passphrase != "" {
			return passphrase, nil
		}
		return "", fmt.Errorf("stdin is not a terminal; set SDKEYS_PASSPHRASE")
	}

	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	return string(raw), nil
}
