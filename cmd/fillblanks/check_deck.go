package main

import (
	"fmt"
	"os"

	"github.com/lox/fillblanks/internal/deck"
)

// CheckDeckCmd lints deck source files and fails when any has problems.
type CheckDeckCmd struct {
	Files []string `kong:"arg,type='existingfile',help='Deck files (.white, .black or .json)'"`
}

func (c *CheckDeckCmd) Run() error {
	bad := 0
	for _, path := range c.Files {
		problems, err := deck.Lint(path)
		if err != nil {
			return fmt.Errorf("lint %s: %w", path, err)
		}
		if len(problems) == 0 {
			fmt.Fprintf(os.Stdout, "%s: ok\n", path)
			continue
		}
		bad++
		for _, p := range problems {
			fmt.Fprintf(os.Stdout, "%s: %s\n", path, p)
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d deck files have problems", bad, len(c.Files))
	}
	return nil
}
