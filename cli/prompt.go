package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	actx "go.hackfix.me/migrain/app/context"
)

const passwordEnvVar = "MIGRAIN_PASSWORD" //nolint:gosec // Not a credential.

type fdReader interface {
	io.Reader
	Fd() uintptr
}

// readPassword returns the database password from the environment, or prompts
// for it. Input isn't echoed if stdin is a terminal.
func readPassword(appCtx *actx.Context) (string, error) {
	if appCtx.Env != nil {
		if pw := appCtx.Env.Get(passwordEnvVar); pw != "" {
			return pw, nil
		}
	}

	if _, err := io.WriteString(appCtx.Stderr, "Password: "); err != nil {
		return "", fmt.Errorf("failed writing to stderr: %w", err)
	}

	if f, ok := appCtx.Stdin.(fdReader); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		_, _ = io.WriteString(appCtx.Stderr, "\n")
		if err != nil {
			return "", fmt.Errorf("failed reading password: %w", err)
		}
		return strings.TrimSpace(string(pw)), nil
	}

	line, err := bufio.NewReader(appCtx.Stdin).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("failed reading password: %w", err)
	}

	return strings.TrimSpace(line), nil
}
