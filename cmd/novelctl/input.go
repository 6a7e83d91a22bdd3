package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// readPassword is swapped out in tests so they never touch a terminal.
var readPassword = term.ReadPassword

var errMismatch = errors.New("passwords do not match")

// promptSecret prints prompt to w and reads one line without echo.
func promptSecret(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	if len(pw) == 0 {
		return "", errors.New("empty password")
	}
	return string(pw), nil
}

// promptNewSecret asks twice and requires both entries to match.
func promptNewSecret(w io.Writer) (string, error) {
	first, err := promptSecret(w, "New password: ")
	if err != nil {
		return "", err
	}
	second, err := promptSecret(w, "Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errMismatch
	}
	return first, nil
}
