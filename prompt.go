package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/term"
)

// terminalNotifier prints controller notifications on the command output.
type terminalNotifier struct {
	w io.Writer
}

func (n terminalNotifier) Success(msg string) { fmt.Fprintln(n.w, msg) }
func (n terminalNotifier) Error(msg string)   { fmt.Fprintf(n.w, "Error: %s\n", msg) }

// lockedWriter serializes output from concurrent loads.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// confirm asks a y/N question. --yes answers it up front; end of input
// counts as no.
func (a *app) confirm(prompt string) bool {
	if a.yes {
		return true
	}
	fmt.Fprintf(a.out, "%s [y/N]: ", prompt)
	if !a.in.Scan() {
		fmt.Fprintln(a.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(a.in.Text())) {
	case "y", "yes":
		return true
	}
	return false
}

// ask prints prompt and reads one trimmed line. ok is false at end of input.
func (a *app) ask(prompt string) (string, bool) {
	fmt.Fprint(a.out, prompt)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

// askDefault is ask with a value used when the answer is empty.
func (a *app) askDefault(prompt, def string) (string, bool) {
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]: ", prompt, def)
	} else {
		prompt += ": "
	}
	v, ok := a.ask(prompt)
	if ok && v == "" {
		v = def
	}
	return v, ok
}

func (a *app) askID(prompt string) (int64, bool) {
	s, ok := a.ask(prompt)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		fmt.Fprintf(a.out, "Invalid ID: %s\n", s)
		return 0, false
	}
	return id, true
}

// readPassword reads a password with masking when stdin is a terminal, and
// falls back to a plain line otherwise.
func (a *app) readPassword(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(a.out) // Add newline after password input
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytePassword)), nil
	}
	if !a.in.Scan() {
		if err := a.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(a.in.Text()), nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid ID: %s", s)
	}
	return id, nil
}
