package deck

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Problem is one finding reported by Lint.
type Problem struct {
	Line    int // zero for whole-file problems
	Message string
	Text    string
}

func (p Problem) String() string {
	if p.Line == 0 {
		return p.Message
	}
	return fmt.Sprintf("line %d: %s: %s", p.Line, p.Message, p.Text)
}

// Lint checks a deck source file. Answer files must have either one form or
// all seven per line; JSON files must decode and yield at least one card.
func Lint(path string) ([]Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	switch filepath.Ext(path) {
	case ExtJSON:
		pools, err := ParseJSON(f)
		if err != nil {
			return []Problem{{Message: err.Error()}}, nil
		}
		if len(pools.Answers)+len(pools.Prompts) == 0 {
			return []Problem{{Message: "deck contains no usable cards"}}, nil
		}
		return nil, nil
	case ExtPrompt:
		return lintPrompts(f)
	default:
		return lintAnswers(f)
	}
}

func lintAnswers(f *os.File) ([]Problem, error) {
	var problems []Problem
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, "|")
		switch {
		case len(parts) != 1 && len(parts) != NumCases:
			problems = append(problems, Problem{
				Line:    n,
				Message: fmt.Sprintf("found %d forms instead of 1 or %d", len(parts), NumCases),
				Text:    raw,
			})
		case strings.TrimSpace(parts[0]) == "":
			problems = append(problems, Problem{Line: n, Message: "empty base form", Text: raw})
		}
	}
	return problems, sc.Err()
}

func lintPrompts(f *os.File) ([]Problem, error) {
	var problems []Problem
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		for _, tag := range NewPrompt("", raw).Tags() {
			if _, ok := CaseFromTag(tag); !ok {
				problems = append(problems, Problem{Line: n, Message: "unknown case tag <" + tag + ">", Text: raw})
			}
		}
	}
	return problems, sc.Err()
}
