package diff

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aymanbagabas/go-udiff"
)

// Unified renders both values as indented JSON and returns a unified text
// diff between them. Equal values yield an empty string.
func Unified(label string, original, modified any) string {
	left := pretty(original)
	right := pretty(modified)
	if left == right {
		return ""
	}
	return udiff.Unified("a/"+label, "b/"+label, left, right)
}

func pretty(v any) string {
	if s, ok := v.(string); ok {
		// Bodies stored as raw text are diffed as text.
		if !strings.HasSuffix(s, "\n") {
			s += "\n"
		}
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v\n", v)
	}
	return string(b) + "\n"
}

// Describe formats changes one per line, the way the diff viewer copies them.
func Describe(changes []Change) string {
	var sb strings.Builder
	for _, c := range changes {
		v, _ := json.Marshal(c.Value)
		path := c.Path
		if path == "" {
			path = "(root)"
		}
		if c.Type == Modified {
			old, _ := json.Marshal(c.OldValue)
			fmt.Fprintf(&sb, "  %s: %s = %s (was %s)\n", c.Type, path, v, old)
			continue
		}
		fmt.Fprintf(&sb, "  %s: %s = %s\n", c.Type, path, v)
	}
	return sb.String()
}
