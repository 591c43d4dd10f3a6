package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// promptLine prints prompt and reads one trimmed line.
func (a *App) promptLine(prompt string) (string, error) {
	a.printf("%s: ", prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo.
func (a *App) promptPassword() (string, error) {
	a.printf("Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	a.printf("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// usernameArg returns the username from args or asks for it.
func (a *App) usernameArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return a.promptLine("Username")
}
