package repl

import (
	"sort"
	"strings"

	"github.com/xrash/smetrics"
)

// Completer suggests commands from the full command paths it knows.
type Completer struct {
	commands []string
	top      map[string]bool
}

// NewCompleter creates a Completer over command paths such as
// "agent restart". Top-level words are derived from the paths.
func NewCompleter(commands ...string) *Completer {
	c := &Completer{top: make(map[string]bool)}
	seen := make(map[string]bool)
	for _, cmd := range commands {
		cmd = strings.Join(strings.Fields(cmd), " ")
		if cmd == "" || seen[cmd] {
			continue
		}
		seen[cmd] = true
		c.commands = append(c.commands, cmd)
		c.top[strings.Fields(cmd)[0]] = true
	}
	sort.Strings(c.commands)
	return c
}

// Complete returns the commands that start with prefix.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// Known reports whether word is a top-level command.
func (c *Completer) Known(word string) bool {
	return c.top[word]
}

// minSuggestLen is the shortest name offered as a similarity match.
// Shorter aliases score high against any word sharing their first letter.
const minSuggestLen = 3

// Suggest returns top-level commands close to word: prefix matches first,
// otherwise commands whose Jaro-Winkler similarity is at least 0.7, best
// match first.
func (c *Completer) Suggest(word string) []string {
	var prefix []string
	score := make(map[string]float64)
	var similar []string
	for name := range c.top {
		switch {
		case strings.HasPrefix(name, word):
			prefix = append(prefix, name)
		case len(name) < minSuggestLen:
		default:
			if s := smetrics.JaroWinkler(word, name, 0.7, 4); s >= 0.7 {
				score[name] = s
				similar = append(similar, name)
			}
		}
	}
	if len(prefix) > 0 {
		sort.Strings(prefix)
		return prefix
	}
	sort.Slice(similar, func(i, j int) bool {
		if score[similar[i]] != score[similar[j]] {
			return score[similar[i]] > score[similar[j]]
		}
		return similar[i] < similar[j]
	})
	return similar
}

// Commands returns the top-level command names, sorted.
func (c *Completer) Commands() []string {
	out := make([]string, 0, len(c.top))
	for name := range c.top {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
