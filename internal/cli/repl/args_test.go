package repl

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"agent list", []string{"agent", "list"}},
		{"  agent   list  ", []string{"agent", "list"}},
		{"agent add --name 'web server'", []string{"agent", "add", "--name", "web server"}},
		{`agent add --name "db \"primary\""`, []string{"agent", "add", "--name", `db "primary"`}},
		{`config set auth.password 'p@ss w\rd'`, []string{"config", "set", "auth.password", `p@ss w\rd`}},
		{`a\ b c`, []string{"a b", "c"}},
		{`config set auth.username ''`, []string{"config", "set", "auth.username", ""}},
		{"", nil},
	}

	for _, tt := range tests {
		got, err := SplitArgs(tt.line)
		if err != nil {
			t.Errorf("SplitArgs(%q) error = %v", tt.line, err)
			continue
		}
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("SplitArgs(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestSplitArgs_Unterminated(t *testing.T) {
	for _, line := range []string{`'open`, `"open`, `trailing\`} {
		if _, err := SplitArgs(line); !errors.Is(err, ErrUnterminatedQuote) {
			t.Errorf("SplitArgs(%q) error = %v", line, err)
		}
	}
}
