package prompt

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrompter(input string, passwords ...string) (*Prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Prompter{
		in:  bufio.NewReader(strings.NewReader(input)),
		out: out,
		readPassword: func() ([]byte, error) {
			if len(passwords) == 0 {
				return nil, io.EOF
			}

			pw := passwords[0]
			passwords = passwords[1:]
			return []byte(pw), nil
		},
	}, out
}

func TestPrompter_Input(t *testing.T) {
	p, out := newTestPrompter("first\r\nsecond")

	answer, err := p.Input("Name")
	require.NoError(t, err)
	assert.Equal(t, "first", answer)
	assert.Equal(t, "Name: ", out.String())

	answer, err = p.Input("Other")
	require.NoError(t, err)
	assert.Equal(t, "second", answer)

	_, err = p.Input("Done")
	assert.Equal(t, io.EOF, err)
}

func TestPrompter_Email(t *testing.T) {
	p, out := newTestPrompter("not-an-email\nplayer@example.com\n")

	email, err := p.Email()
	require.NoError(t, err)
	assert.Equal(t, "player@example.com", email)
	assert.Contains(t, out.String(), "invalid format")

	p, _ = newTestPrompter("\n")
	_, err = p.Email()
	assert.Equal(t, ErrEmpty, err)
}

func TestPrompter_Password(t *testing.T) {
	p, out := newTestPrompter("", "abc", "secret")

	pw, err := p.Password(6)
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)
	assert.Contains(t, out.String(), "password must be 6 or more characters")

	p, _ = newTestPrompter("", "")
	_, err = p.Password(6)
	assert.Equal(t, ErrEmpty, err)

	p, _ = newTestPrompter("")
	_, err = p.Password(6)
	assert.Equal(t, io.EOF, err)
}
