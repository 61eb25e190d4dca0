package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/badoux/checkmail"
	"golang.org/x/term"
)

// ErrEmpty is returned when the user answers with an empty line
var ErrEmpty = errors.New("no answer given")

// Prompter asks questions on a terminal
type Prompter struct {
	in           *bufio.Reader
	out          io.Writer
	readPassword func() ([]byte, error)
}

// New returns a prompter reading from stdin. Passwords are read without echo.
func New() *Prompter {
	return &Prompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		readPassword: func() ([]byte, error) {
			return term.ReadPassword(int(os.Stdin.Fd()))
		},
	}
}

// Input asks the question and returns the trimmed answer
func (p *Prompter) Input(question string) (string, error) {
	_, _ = fmt.Fprintf(p.out, "%s: ", question)
	str, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || str == "") {
		return "", err
	}

	return strings.TrimRight(str, "\r\n"), nil
}

// Email asks for an email address until a well-formed one is given
func (p *Prompter) Email() (string, error) {
	for {
		str, err := p.Input("Email")
		if err != nil {
			return "", err
		}

		if str == "" {
			return "", ErrEmpty
		}

		if err := checkmail.ValidateFormat(str); err != nil {
			_, _ = fmt.Fprintln(p.out, err)
			continue
		}

		return str, nil
	}
}

// Password asks for a password of at least minLen characters
func (p *Prompter) Password(minLen int) (string, error) {
	for {
		_, _ = fmt.Fprint(p.out, "Password: ")
		pwBytes, err := p.readPassword()
		if err != nil {
			return "", err
		}
		_, _ = fmt.Fprintln(p.out, "")

		password := strings.TrimRight(string(pwBytes), "\r\n")
		if password == "" {
			return "", ErrEmpty
		}

		if len(password) < minLen {
			_, _ = fmt.Fprintf(p.out, "password must be %d or more characters\n", minLen)
			continue
		}

		return password, nil
	}
}
