package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name   string
		editor string
		line   int
		want   []string
	}{
		{"no line", "vim", 0, []string{"/r/a.go"}},
		{"vim", "/usr/bin/nvim", 12, []string{"+12", "/r/a.go"}},
		{"vscode", "code", 3, []string{"--goto", "/r/a.go:3"}},
		{"helix", "hx", 7, []string{"/r/a.go:7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Args(tt.editor, "/r/a.go", tt.line))
		})
	}
}

func TestCommandUsesEditorEnv(t *testing.T) {
	t.Setenv("EDITOR", "nano")

	cmd, err := NewOpener().Command("/r/a.go", 4)

	assert.NoError(t, err)
	assert.Equal(t, []string{"nano", "+4", "/r/a.go"}, cmd.Args)
}
