package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/oshokin/udunits2-publisher/internal/logger"
)

var (
	// ErrNotSet is returned by a provider that has nothing to offer.
	ErrNotSet = errors.New("credentials not set")
	// errNoProviders is returned when Chain is empty.
	errNoProviders = errors.New("no credential providers configured")
)

// Credentials authenticate requests to the artifact repository.
type Credentials struct {
	Username string
	Password string
}

// String never prints the password.
func (c Credentials) String() string {
	return fmt.Sprintf("%s:*****", c.Username)
}

// Provider yields credentials from a single source.
type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// Env reads credentials from two environment variables.
type Env struct {
	// UsernameVar and PasswordVar name the variables.
	UsernameVar string
	PasswordVar string
	// Lookup defaults to os.LookupEnv.
	Lookup func(key string) (string, bool)
}

// Credentials returns ErrNotSet unless both variables are non-empty.
func (e *Env) Credentials(ctx context.Context) (Credentials, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	username, _ := lookup(e.UsernameVar)
	password, _ := lookup(e.PasswordVar)

	if username == "" || password == "" {
		return Credentials{}, fmt.Errorf("%s/%s: %w", e.UsernameVar, e.PasswordVar, ErrNotSet)
	}

	logger.Info(ctx, "Found credentials in the environment")

	return Credentials{Username: username, Password: password}, nil
}

// Prompt asks for a visible username and a hidden password.
type Prompt struct {
	// In defaults to os.Stdin and Out to os.Stderr.
	In  io.Reader
	Out io.Writer
}

// Credentials prompts on Out and reads from In. When In is a terminal the
// password is read without echo.
func (p *Prompt) Credentials(ctx context.Context) (Credentials, error) {
	in := p.In
	if in == nil {
		in = os.Stdin
	}

	out := p.Out
	if out == nil {
		out = os.Stderr
	}

	logger.Info(ctx, "Prompting for credentials")

	_, _ = fmt.Fprint(out, "username:")

	username, err := readLine(in)
	if err != nil {
		return Credentials{}, fmt.Errorf("read username: %w", err)
	}

	_, _ = fmt.Fprint(out, "Password: ")

	var password string

	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		raw, readErr := term.ReadPassword(int(file.Fd()))

		_, _ = fmt.Fprintln(out)

		if readErr != nil {
			return Credentials{}, fmt.Errorf("read password: %w", readErr)
		}

		password = string(raw)
	} else {
		password, err = readLine(in)
		if err != nil {
			return Credentials{}, fmt.Errorf("read password: %w", err)
		}
	}

	return Credentials{Username: username, Password: password}, nil
}

// Chain tries providers in order, moving on while they return ErrNotSet.
type Chain []Provider

// Credentials returns the first credentials found.
func (c Chain) Credentials(ctx context.Context) (Credentials, error) {
	if len(c) == 0 {
		return Credentials{}, errNoProviders
	}

	var lastErr error

	for _, provider := range c {
		creds, err := provider.Credentials(ctx)
		if err == nil {
			return creds, nil
		}

		if !errors.Is(err, ErrNotSet) {
			return Credentials{}, err
		}

		lastErr = err
	}

	return Credentials{}, lastErr
}

// Default returns the environment-then-prompt chain.
func Default(usernameVar, passwordVar string) Chain {
	return Chain{
		&Env{UsernameVar: usernameVar, PasswordVar: passwordVar},
		&Prompt{},
	}
}

// readLine reads up to and including the next newline one byte at a time, so
// nothing past the line is taken from r. The terminal password read that
// follows sees pasted input intact.
func readLine(r io.Reader) (string, error) {
	var (
		line []byte
		b    [1]byte
	)

	for {
		n, err := r.Read(b[:])
		if n == 1 {
			if b[0] == '\n' {
				break
			}

			line = append(line, b[0])
		}

		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				break
			}

			return "", err
		}
	}

	return strings.TrimRight(string(line), "\r"), nil
}
