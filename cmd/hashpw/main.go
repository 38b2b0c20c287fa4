package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"recview/internal/auth"
)

// prompter reads one secret after printing label.
type prompter func(label string) (string, error)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	prompt := newPrompter(os.Stdin, os.Stderr)

	switch command := os.Args[1]; command {
	case "hash":
		if !hashPassword(prompt, os.Stdout, os.Stderr) {
			os.Exit(1)
		}
	case "verify":
		if !verifyPassword(prompt, os.Getenv("AUTH_PASSWORD_HASH"), os.Stdout, os.Stderr) {
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		sanitized := sanitizeCommand(command)
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitized) //nolint:gosec // only [a-zA-Z0-9_-] pass sanitizeCommand
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

// newPrompter reads without echo when in is a terminal and falls back to
// reading lines, so the tool also works with piped input.
func newPrompter(in *os.File, out io.Writer) prompter {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		return func(label string) (string, error) {
			fmt.Fprint(out, label)
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return linePrompter(in, out)
}

func linePrompter(in io.Reader, out io.Writer) prompter {
	reader := bufio.NewReader(in)
	return func(label string) (string, error) {
		fmt.Fprint(out, label)
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

// sanitizeCommand replaces every character outside [a-zA-Z0-9_-] with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "recview password hashing")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: hashpw <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  hash    - Prompt for a password and print its bcrypt hash")
	fmt.Fprintln(w, "  verify  - Check a password against AUTH_PASSWORD_HASH")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Set the printed hash as AUTH_PASSWORD_HASH together with AUTH_USERNAME.")
}

func hashPassword(prompt prompter, stdout, stderr io.Writer) bool {
	password, err := prompt("New Password: ")
	if err != nil {
		fmt.Fprintf(stderr, "Error reading password: %v\n", err)
		return false
	}

	confirm, err := prompt("Confirm Password: ")
	if err != nil {
		fmt.Fprintf(stderr, "Error reading password: %v\n", err)
		return false
	}

	if password != confirm {
		fmt.Fprintln(stderr, "Error: Passwords do not match")
		return false
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return false
	}

	fmt.Fprintln(stdout, hash)
	return true
}

func verifyPassword(prompt prompter, hash string, stdout, stderr io.Writer) bool {
	if hash == "" {
		fmt.Fprintln(stderr, "Error: AUTH_PASSWORD_HASH is not set")
		return false
	}
	if err := auth.ValidateHash(hash); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return false
	}

	password, err := prompt("Password: ")
	if err != nil {
		fmt.Fprintf(stderr, "Error reading password: %v\n", err)
		return false
	}

	if !auth.VerifyPassword(hash, password) {
		fmt.Fprintln(stderr, "Password does not match")
		return false
	}

	fmt.Fprintln(stdout, "Password matches")
	return true
}
