package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrExhausted is returned by Draw when no card is left anywhere: the
// working deck is empty and every master card is currently in play.
var ErrExhausted = errors.New("deck exhausted")

// Pile is a room's working deck over an immutable master pool. Cards handed
// out by Draw stay "in play" until returned with Discard, and are never
// reshuffled back while in play, so a card has exactly one owner at a time.
type Pile[C Card] struct {
	master  []C
	working []C
	inPlay  map[string]struct{}
	rng     *rand.Rand
}

// NewPile creates a pile whose working deck is a shuffled copy of master.
// The master slice is not modified.
func NewPile[C Card](master []C, rng *rand.Rand) *Pile[C] {
	p := &Pile[C]{
		master: master,
		inPlay: make(map[string]struct{}),
		rng:    rng,
	}
	p.working = p.shuffled(master)
	return p
}

// Draw pops the top card. When the working deck is empty it is rebuilt from
// the master pool minus the cards in play.
func (p *Pile[C]) Draw() (C, error) {
	if len(p.working) == 0 {
		p.reshuffle()
	}
	if len(p.working) == 0 {
		var zero C
		return zero, ErrExhausted
	}

	n := len(p.working) - 1
	card := p.working[n]
	p.working = p.working[:n]
	p.inPlay[card.ID()] = struct{}{}
	return card, nil
}

// Discard takes a drawn card back out of play. It becomes drawable again at
// the next reshuffle.
func (p *Pile[C]) Discard(cards ...C) {
	for _, c := range cards {
		delete(p.inPlay, c.ID())
	}
}

// Size returns the number of cards in the master pool.
func (p *Pile[C]) Size() int { return len(p.master) }

// Remaining returns the number of cards left in the working deck.
func (p *Pile[C]) Remaining() int { return len(p.working) }

// Drawable returns the number of cards Draw can still hand out, counting
// the ones a reshuffle would recover.
func (p *Pile[C]) Drawable() int { return len(p.master) - len(p.inPlay) }

// InPlay returns the number of drawn cards that have not been discarded.
func (p *Pile[C]) InPlay() int { return len(p.inPlay) }

// Working returns a copy of the working deck, top card last.
func (p *Pile[C]) Working() []C {
	out := make([]C, len(p.working))
	copy(out, p.working)
	return out
}

func (p *Pile[C]) reshuffle() {
	available := make([]C, 0, len(p.master)-len(p.inPlay))
	for _, c := range p.master {
		if _, held := p.inPlay[c.ID()]; !held {
			available = append(available, c)
		}
	}
	p.working = p.shuffled(available)
}

func (p *Pile[C]) shuffled(src []C) []C {
	out := make([]C, len(src))
	copy(out, src)
	p.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
