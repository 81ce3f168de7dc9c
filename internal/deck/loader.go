package deck

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// File extensions recognised in a deck directory.
const (
	ExtJSON   = ".json"
	ExtAnswer = ".white"
	ExtPrompt = ".black"
)

// ErrInvalidName is returned for deck names that could escape the deck
// directory.
var ErrInvalidName = errors.New("invalid deck name")

// Pools holds the master card pools loaded for one room.
type Pools struct {
	Answers []*Answer
	Prompts []*Prompt
}

// jsonDeck mirrors the structured deck format produced by the deck editor.
type jsonDeck struct {
	FormatVersion string         `json:"format_version"`
	Meta          map[string]any `json:"meta"`
	Cards         struct {
		White []jsonAnswer `json:"white"`
		Black []jsonPrompt `json:"black"`
	} `json:"cards"`
}

type jsonAnswer struct {
	ID    string          `json:"id"`
	Forms json.RawMessage `json:"forms"`
}

type jsonPrompt struct {
	ID       string   `json:"id"`
	Template string   `json:"template"`
	RawText  string   `json:"raw_text"`
	Slots    []string `json:"slots"`
}

// idSet hands out ids that are unique within one load.
type idSet map[string]struct{}

func (s idSet) claim(id string) string {
	id = strings.TrimSpace(id)
	if _, taken := s[id]; id == "" || taken {
		id = uuid.NewString()
	}
	s[id] = struct{}{}
	return id
}

// ParseAnswerLines reads one answer card per line as up to seven
// pipe-separated forms. Blank lines and lines with an empty base form are
// skipped.
func ParseAnswerLines(r io.Reader) ([]*Answer, error) {
	return parseAnswerLines(r, idSet{})
}

// ParsePromptLines reads one prompt template per line. Blank lines are
// skipped.
func ParsePromptLines(r io.Reader) ([]*Prompt, error) {
	return parsePromptLines(r, idSet{})
}

// ParseJSON reads the structured deck format. Individual malformed records
// are dropped; only an unreadable document is an error.
func ParseJSON(r io.Reader) (Pools, error) {
	return parseJSON(r, idSet{})
}

func parseAnswerLines(r io.Reader, ids idSet) ([]*Answer, error) {
	var out []*Answer
	err := scanLines(r, func(line string) {
		parts := strings.Split(line, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if parts[0] == "" {
			return
		}
		out = append(out, NewAnswer(ids.claim(""), parts))
	})
	return out, err
}

func parsePromptLines(r io.Reader, ids idSet) ([]*Prompt, error) {
	var out []*Prompt
	err := scanLines(r, func(line string) {
		out = append(out, NewPrompt(ids.claim(""), line))
	})
	return out, err
}

func parseJSON(r io.Reader, ids idSet) (Pools, error) {
	var doc jsonDeck
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Pools{}, fmt.Errorf("decode deck: %w", err)
	}

	var pools Pools
	for _, w := range doc.Cards.White {
		forms, ok := decodeForms(w.Forms)
		if !ok || forms[Nominative] == "" {
			continue
		}
		pools.Answers = append(pools.Answers, NewAnswer(ids.claim(w.ID), forms[:]))
	}
	for _, b := range doc.Cards.Black {
		tmpl := b.Template
		if tmpl == "" {
			tmpl = b.RawText
		}
		if strings.TrimSpace(tmpl) == "" {
			continue
		}
		if !slotsMatch(tmpl, b.Slots) {
			continue
		}
		pools.Prompts = append(pools.Prompts, NewPrompt(ids.claim(b.ID), tmpl))
	}
	return pools, nil
}

// slotsMatch reports whether an explicit slot list agrees with the tags in
// the template. An absent list always matches.
func slotsMatch(template string, slots []string) bool {
	if len(slots) == 0 {
		return true
	}
	normalized := make([]string, len(slots))
	for i, s := range slots {
		normalized[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return slices.Equal(NewPrompt("", template).Tags(), normalized)
}

// decodeForms accepts either a per-case map keyed by tag name or a
// positional list. Missing cases take the base form.
func decodeForms(raw json.RawMessage) ([NumCases]string, bool) {
	var forms [NumCases]string

	var byTag map[string]string
	if err := json.Unmarshal(raw, &byTag); err == nil {
		for tag, form := range byTag {
			if c, ok := CaseFromTag(strings.ToUpper(strings.TrimSpace(tag))); ok {
				forms[c] = strings.TrimSpace(form)
			}
		}
	} else {
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			return forms, false
		}
		if len(list) < NumCases {
			list = list[:1]
		}
		for i := range forms {
			if i < len(list) {
				forms[i] = strings.TrimSpace(list[i])
			}
		}
	}

	for i := range forms {
		if forms[i] == "" {
			forms[i] = forms[Nominative]
		}
	}
	return forms, true
}

func scanLines(r io.Reader, fn func(line string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fn(line)
	}
	return sc.Err()
}

// Loader resolves deck names against a directory.
type Loader struct {
	dir    string
	logger *log.Logger
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, logger *log.Logger) *Loader {
	return &Loader{dir: dir, logger: logger.WithPrefix("decks")}
}

// Dir returns the deck directory.
func (l *Loader) Dir() string { return l.dir }

// List returns the sorted names of every deck in the directory.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list decks: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		switch ext {
		case ExtJSON, ExtAnswer, ExtPrompt:
		default:
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Load reads the named decks into one pair of master pools. A deck resolves
// to name.json when present, otherwise to name.white and name.black. Missing
// or unreadable files contribute no cards.
func (l *Loader) Load(names ...string) Pools {
	var pools Pools
	ids := idSet{}

	for _, name := range names {
		if err := ValidateName(name); err != nil {
			l.logger.Warn("Skipping deck", "deck", name, "error", err)
			continue
		}

		jsonPath := filepath.Join(l.dir, name+ExtJSON)
		if _, err := os.Stat(jsonPath); err == nil {
			p, err := readFile(jsonPath, func(r io.Reader) (Pools, error) { return parseJSON(r, ids) })
			if err != nil {
				l.logger.Warn("Failed to load deck", "deck", name, "error", err)
				continue
			}
			pools.Answers = append(pools.Answers, p.Answers...)
			pools.Prompts = append(pools.Prompts, p.Prompts...)
			continue
		}

		answers, err := readFile(filepath.Join(l.dir, name+ExtAnswer), func(r io.Reader) ([]*Answer, error) {
			return parseAnswerLines(r, ids)
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("Failed to read answers", "deck", name, "error", err)
		}
		prompts, err := readFile(filepath.Join(l.dir, name+ExtPrompt), func(r io.Reader) ([]*Prompt, error) {
			return parsePromptLines(r, ids)
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("Failed to read prompts", "deck", name, "error", err)
		}
		pools.Answers = append(pools.Answers, answers...)
		pools.Prompts = append(pools.Prompts, prompts...)
	}

	l.logger.Debug("Loaded decks", "decks", names, "answers", len(pools.Answers), "prompts", len(pools.Prompts))
	return pools
}

// ValidateName rejects names that are empty or contain path elements.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer func() { _ = f.Close() }()
	return parse(f)
}
