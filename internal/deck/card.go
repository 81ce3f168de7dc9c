package deck

import (
	"regexp"
	"strings"
)

// Case is a grammatical case addressed by a blank tag in a prompt card.
type Case int

const (
	Nominative   Case = iota // <M>
	Genitive                 // <D>
	Dative                   // <C>
	Accusative               // <B>
	Instrumental             // <N>
	Locative                 // <MSC>
	Vocative                 // <W>
)

// NumCases is the number of inflected forms every answer card carries.
const NumCases = 7

// Blank is the visual stand-in for an unfilled tag.
const Blank = "__________"

var caseTags = [NumCases]string{"M", "D", "C", "B", "N", "MSC", "W"}

var tagPattern = regexp.MustCompile(`<([A-Z]+)>`)

// Tag returns the bare tag name of the case (e.g. "MSC").
func (c Case) Tag() string {
	if c < 0 || int(c) >= NumCases {
		return "?"
	}
	return caseTags[c]
}

// String returns the tag as it appears in a template (e.g. "<MSC>").
func (c Case) String() string {
	return "<" + c.Tag() + ">"
}

// CaseFromTag resolves a bare tag name. Unknown tags are reported as
// Nominative with ok set to false.
func CaseFromTag(tag string) (Case, bool) {
	for i, t := range caseTags {
		if t == tag {
			return Case(i), true
		}
	}
	return Nominative, false
}

// Card is anything a Pile can hold.
type Card interface {
	ID() string
}

// Answer is an immutable answer card with one form per grammatical case.
type Answer struct {
	id    string
	forms [NumCases]string
}

// NewAnswer builds an answer card. With fewer than NumCases forms the first
// form is replicated into every slot; extra forms are ignored.
func NewAnswer(id string, forms []string) *Answer {
	a := &Answer{id: id}
	if len(forms) == 0 {
		return a
	}
	if len(forms) < NumCases {
		for i := range a.forms {
			a.forms[i] = forms[0]
		}
		return a
	}
	copy(a.forms[:], forms[:NumCases])
	return a
}

// ID returns the card id.
func (a *Answer) ID() string { return a.id }

// Base returns the nominative form.
func (a *Answer) Base() string { return a.forms[Nominative] }

// Form returns the form for the given case, falling back to the base form.
func (a *Answer) Form(c Case) string {
	if c < 0 || int(c) >= NumCases {
		return a.Base()
	}
	return a.forms[c]
}

// Forms returns a copy of all forms in case order.
func (a *Answer) Forms() [NumCases]string { return a.forms }

// Prompt is an immutable prompt card whose template holds zero or more
// case tags.
type Prompt struct {
	id       string
	template string
	tags     []string
}

// NewPrompt builds a prompt card from its raw template.
func NewPrompt(id, template string) *Prompt {
	template = strings.TrimSpace(template)
	p := &Prompt{id: id, template: template}
	for _, m := range tagPattern.FindAllStringSubmatch(template, -1) {
		p.tags = append(p.tags, m[1])
	}
	return p
}

// ID returns the card id.
func (p *Prompt) ID() string { return p.id }

// Template returns the raw template text.
func (p *Prompt) Template() string { return p.template }

// Tags returns the bare tag names in template order.
func (p *Prompt) Tags() []string {
	out := make([]string, len(p.tags))
	copy(out, p.tags)
	return out
}

// PickCount is the number of answers the prompt needs, at least one.
func (p *Prompt) PickCount() int {
	return max(1, len(p.tags))
}

// Masked returns the template with every tag replaced by a blank.
func (p *Prompt) Masked() string {
	return tagPattern.ReplaceAllString(p.template, Blank)
}

// Fill substitutes each tag in order with the matching inflection of the
// corresponding answer. Tags without an answer become short blanks. A
// template with no tags gets the first answer's base form appended.
func (p *Prompt) Fill(answers []*Answer) string {
	if len(p.tags) == 0 {
		if len(answers) == 0 {
			return p.template
		}
		return p.template + " <b>" + answers[0].Base() + "</b>"
	}
	i := 0
	return tagPattern.ReplaceAllStringFunc(p.template, func(tag string) string {
		defer func() { i++ }()
		if i >= len(answers) {
			return "____"
		}
		c, _ := CaseFromTag(strings.Trim(tag, "<>"))
		return "<b>" + answers[i].Form(c) + "</b>"
	})
}
