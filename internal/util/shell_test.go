package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "hello", "'hello'"},
		{"with spaces", "hello world", "'hello world'"},
		{"with single quote", "it's", "'it'\\''s'"},
		{"empty", "", "''"},
		{"with dollar", "$HOME", "'$HOME'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShellQuote(tt.input))
		})
	}
}

func TestShellQuotePreserveTilde(t *testing.T) {
	assert.Equal(t, "~/'my dir'", ShellQuotePreserveTilde("~/my dir"))
	assert.Equal(t, "~", ShellQuotePreserveTilde("~"))
	assert.Equal(t, "'/var/apps'", ShellQuotePreserveTilde("/var/apps"))
}

func TestAppendCmdFlags(t *testing.T) {
	tests := []struct {
		name  string
		cmd   string
		flags map[string]interface{}
		want  string
	}{
		{
			name:  "no flags",
			cmd:   "docker ps",
			flags: nil,
			want:  "docker ps",
		},
		{
			name:  "bool true emits bare flag",
			cmd:   "docker ps",
			flags: map[string]interface{}{"all": true},
			want:  "docker ps --all",
		},
		{
			name:  "bool false drops flag",
			cmd:   "docker ps",
			flags: map[string]interface{}{"all": false},
			want:  "docker ps",
		},
		{
			name:  "short flag",
			cmd:   "docker logs",
			flags: map[string]interface{}{"f": true},
			want:  "docker logs -f",
		},
		{
			name:  "valued flag is quoted",
			cmd:   "docker compose logs",
			flags: map[string]interface{}{"since": "10 min"},
			want:  "docker compose logs --since='10 min'",
		},
		{
			name:  "underscores become dashes and output is sorted",
			cmd:   "docker run",
			flags: map[string]interface{}{"no_deps": true, "detach": true},
			want:  "docker run --detach --no-deps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AppendCmdFlags(tt.cmd, tt.flags))
		})
	}
}

func TestSplitCmdFlags(t *testing.T) {
	flags, positional := SplitCmdFlags([]string{"api", "--follow", "--since=1m", "worker"})

	assert.Equal(t, []string{"api", "worker"}, positional)
	assert.Equal(t, map[string]interface{}{
		"follow": true,
		"since":  "1m",
	}, flags)

	flags, positional = SplitCmdFlags(nil)
	assert.Empty(t, flags)
	assert.Nil(t, positional)
}
