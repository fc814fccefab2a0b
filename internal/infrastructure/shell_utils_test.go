package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellEscape(t *testing.T) {
	assert.Equal(t, "plain.txt", ShellEscape("plain.txt"))
	assert.Equal(t, "''", ShellEscape(""))
	assert.Equal(t, "'with space'", ShellEscape("with space"))
	assert.Equal(t, "'a$b'", ShellEscape("a$b"))
	assert.Equal(t, `'it'"'"'s'`, ShellEscape("it's"))
}

func TestShellEscapeCommand(t *testing.T) {
	line := ShellEscapeCommand("megadl", "--path", "/tmp/my downloads", "https://mega.nz/file/x#y")
	assert.Equal(t, "megadl --path '/tmp/my downloads' 'https://mega.nz/file/x#y'", line)
}

func TestShellEscapeCommand_RedactsPassword(t *testing.T) {
	line := ShellEscapeCommand("megadl", "--username", "user@example.com", "--password", "hunter2", "url")
	assert.NotContains(t, line, "hunter2")
	assert.Contains(t, line, "--password ********")
	assert.Contains(t, line, "user@example.com")
}
