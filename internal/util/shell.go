// Package util provides common utility functions used across the codebase.
package util

import (
	"fmt"
	"sort"
	"strings"
)

// ShellQuote wraps a string in single quotes, escaping any existing single
// quotes. This is safe for use in shell commands where the string should be
// treated literally.
func ShellQuote(s string) string {
	// Replace ' with '\'' (end quote, escaped quote, start quote)
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// ShellQuotePreserveTilde quotes a path for shell execution while preserving
// tilde expansion. For paths starting with ~/, the tilde is kept unquoted so
// the remote shell expands it to the user's home directory.
func ShellQuotePreserveTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		return "~/" + ShellQuote(path[2:])
	}
	if path == "~" {
		return "~"
	}
	return ShellQuote(path)
}

// AppendCmdFlags appends CLI flags to a base command string. Single-letter
// names become short flags, longer names become long flags with underscores
// turned into dashes. Boolean true values append the bare flag, false values
// drop it, and anything else is appended as a quoted value. Flags are emitted
// in name order so the resulting command is deterministic.
func AppendCmdFlags(cmd string, flags map[string]interface{}) string {
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(cmd)

	for _, name := range names {
		flag := "--" + strings.ReplaceAll(name, "_", "-")
		if len(name) == 1 {
			flag = "-" + name
		}

		switch v := flags[name].(type) {
		case bool:
			if v {
				b.WriteString(" " + flag)
			}
		default:
			b.WriteString(fmt.Sprintf(" %s=%s", flag, ShellQuote(fmt.Sprintf("%v", v))))
		}
	}

	return b.String()
}

// SplitCmdFlags separates raw CLI arguments into long flags and positional
// arguments. `--name=value` and bare `--name` tokens become flag entries
// (bare flags map to true), everything else stays positional in order.
func SplitCmdFlags(args []string) (map[string]interface{}, []string) {
	flags := make(map[string]interface{})
	var positional []string

	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
			continue
		}
		name := strings.TrimPrefix(arg, "--")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			flags[name[:eq]] = name[eq+1:]
		} else {
			flags[name] = true
		}
	}

	return flags, positional
}
