package game

import (
	"fmt"
	rand "math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/fillblanks/internal/deck"
	"github.com/lox/fillblanks/internal/randutil"
)

const (
	// MinPlayers is the smallest room that can start or continue a game.
	MinPlayers = 2

	// DepartedName stands in for a winner who has already left the room.
	DepartedName = "(departed player)"

	// DeckEmptyName is recorded as the winner when the game ends because
	// the cards ran out.
	DeckEmptyName = "deck empty"
)

// Settings are fixed when a room is created.
type Settings struct {
	MaxPlayers     int
	HandSize       int
	WinScore       int
	Timeout        time.Duration // zero disables the round timer
	Decks          []string
	Password       string
	AnyoneCanStart bool
}

// PlayerID identifies a connection seated in a room.
type PlayerID string

// Player is one seat in a room.
type Player struct {
	ID       PlayerID
	Nickname string
	Hand     []*deck.Answer
	Score    int
}

// Submission is one player's answer cards for the active round.
type Submission struct {
	Author PlayerID
	Cards  []*deck.Answer
}

// Config carries everything NewRoom needs.
type Config struct {
	Name     string
	Owner    string
	Settings Settings
	Pools    deck.Pools
	Clock    quartz.Clock
	Rand     *rand.Rand
	Logger   *log.Logger

	// OnTimeout is called from the clock's goroutine when a round's
	// submission deadline passes. The callee must serialise with every other
	// Room call and then invoke Expire with the given round.
	OnTimeout func(round uint64)
}

// Room is the authoritative state machine for one game.
//
// A Room is not safe for concurrent use. Its owner serialises every call,
// including the work triggered by OnTimeout.
type Room struct {
	name     string
	owner    string
	settings Settings
	logger   *log.Logger
	rng      *rand.Rand

	answers *deck.Pile[*deck.Answer]
	prompts *deck.Pile[*deck.Prompt]

	phase        Phase
	round        uint64
	prompt       *deck.Prompt
	czar         PlayerID
	players      map[PlayerID]*Player
	order        []PlayerID
	submissions  map[PlayerID][]*deck.Answer
	judging      []Submission
	ready        map[PlayerID]struct{}
	winningIndex int
	winner       string

	timer *RoundTimer
}

// NewRoom creates a room in the LOBBY phase with freshly shuffled working
// decks.
func NewRoom(cfg Config) *Room {
	rng := cfg.Rand
	if rng == nil {
		rng = randutil.New(randutil.Seed())
	}
	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Room{
		name:         cfg.Name,
		owner:        cfg.Owner,
		settings:     cfg.Settings,
		logger:       logger.WithPrefix("room").With("room", cfg.Name),
		rng:          rng,
		answers:      deck.NewPile(cfg.Pools.Answers, rng),
		prompts:      deck.NewPile(cfg.Pools.Prompts, rng),
		phase:        PhaseLobby,
		players:      make(map[PlayerID]*Player),
		submissions:  make(map[PlayerID][]*deck.Answer),
		ready:        make(map[PlayerID]struct{}),
		winningIndex: -1,
		timer:        NewRoundTimer(clock, cfg.OnTimeout),
	}
}

// Name returns the room's unique name.
func (r *Room) Name() string { return r.name }

// Owner returns the creator's nickname, empty once they have left.
func (r *Room) Owner() string { return r.owner }

// Settings returns a copy of the room settings.
func (r *Room) Settings() Settings {
	s := r.settings
	s.Decks = slices.Clone(r.settings.Decks)
	return s
}

// Phase returns the current phase.
func (r *Room) Phase() Phase { return r.phase }

// Round returns the number of rounds started so far.
func (r *Room) Round() uint64 { return r.round }

// Prompt returns the active prompt card, nil outside a round.
func (r *Room) Prompt() *deck.Prompt { return r.prompt }

// Czar returns the judging player, empty when nobody holds the role.
func (r *Room) Czar() PlayerID { return r.czar }

// IsCzar reports whether id is the current judge.
func (r *Room) IsCzar(id PlayerID) bool { return r.czar != "" && r.czar == id }

// Winner returns the recorded game winner (or DeckEmptyName).
func (r *Room) Winner() string { return r.winner }

// WinningIndex returns the judged index of the last round's winner, or -1.
func (r *Room) WinningIndex() int { return r.winningIndex }

// PlayerCount returns the number of seated players.
func (r *Room) PlayerCount() int { return len(r.players) }

// Full reports whether the room has reached its seat limit.
func (r *Room) Full() bool { return len(r.players) >= r.settings.MaxPlayers }

// HasPassword reports whether joining requires a password.
func (r *Room) HasPassword() bool { return r.settings.Password != "" }

// CheckPassword reports whether password admits a new player.
func (r *Room) CheckPassword(password string) bool {
	return !r.HasPassword() || r.settings.Password == password
}

// Players returns the seated player ids in join order.
func (r *Room) Players() []PlayerID { return slices.Clone(r.order) }

// Player returns a copy of the player record.
func (r *Room) Player(id PlayerID) (Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	cp := *p
	cp.Hand = slices.Clone(p.Hand)
	return cp, true
}

// Submitted reports whether id has submitted in the active round.
func (r *Room) Submitted(id PlayerID) bool {
	_, ok := r.submissions[id]
	return ok
}

// Judging returns the submissions in the order the czar sees them.
func (r *Room) Judging() []Submission { return slices.Clone(r.judging) }

// CanStart reports whether the named player may start the game.
func (r *Room) CanStart(nickname string) bool {
	return r.settings.AnyoneCanStart || r.owner == "" || r.owner == nickname
}

// AddPlayer seats a new player with an empty hand and zero score. Players
// joining mid-game are dealt in at the next round start.
func (r *Room) AddPlayer(id PlayerID, nickname string) error {
	if _, ok := r.players[id]; ok {
		return ErrAlreadyPlayer
	}
	r.players[id] = &Player{ID: id, Nickname: nickname}
	r.order = append(r.order, id)
	r.logger.Debug("Player added", "player", nickname, "players", len(r.players))
	return nil
}

// RemovePlayer unseats a player, returning their cards to the deck and
// discarding any submission still being collected. It reports whether the
// room is now empty. It never advances the round; call Settle for that.
func (r *Room) RemovePlayer(id PlayerID) bool {
	p, ok := r.players[id]
	if !ok {
		return len(r.players) == 0
	}

	r.answers.Discard(p.Hand...)
	if cards, ok := r.submissions[id]; ok {
		// Once judging starts the cards belong to the judging order.
		if r.phase == PhaseSelecting {
			r.answers.Discard(cards...)
		}
		delete(r.submissions, id)
	}
	delete(r.ready, id)
	delete(r.players, id)
	r.order = slices.DeleteFunc(r.order, func(o PlayerID) bool { return o == id })

	if r.czar == id {
		r.czar = ""
	}
	if r.owner == p.Nickname {
		r.owner = ""
	}

	r.logger.Debug("Player removed", "player", p.Nickname, "players", len(r.players))

	if len(r.players) == 0 {
		r.timer.Cancel()
		return true
	}
	return false
}

// Start begins the first round on behalf of the player by.
func (r *Room) Start(by PlayerID) error {
	switch r.phase {
	case PhaseLobby:
	case PhaseGameOver:
		return ErrGameOver
	default:
		return ErrAlreadyStarted
	}

	p, ok := r.players[by]
	if !ok {
		return ErrNotPlayer
	}
	if !r.CanStart(p.Nickname) {
		return ErrNotAllowedToStart
	}
	if len(r.players) < MinPlayers {
		return ErrNotEnoughPlayers
	}
	return r.StartRound()
}

// StartRound draws a prompt, tops up every hand, rotates the czar and arms
// the round timer. If no prompt can be drawn the game ends instead; that is
// a normal transition and not reported as an error.
func (r *Room) StartRound() error {
	if r.phase == PhaseGameOver {
		return ErrGameOver
	}
	r.timer.Cancel()
	r.clearRound()

	prompt, err := r.prompts.Draw()
	if err != nil {
		r.logger.Info("Out of prompt cards, ending game", "round", r.round)
		return r.endGame(DeckEmptyName)
	}
	if err := r.setPhase(PhaseSelecting); err != nil {
		r.prompts.Discard(prompt)
		return err
	}

	r.prompt = prompt
	r.round++
	r.winningIndex = -1
	r.deal()
	r.rotateCzar()

	if r.settings.Timeout > 0 {
		r.timer.Arm(r.round, r.settings.Timeout)
	}

	czar := ""
	if p, ok := r.players[r.czar]; ok {
		czar = p.Nickname
	}
	r.logger.Info("Round started", "round", r.round, "czar", czar, "pick", prompt.PickCount())
	return nil
}

// Submit moves the given cards from the player's hand into the round. The
// ids must name exactly the prompt's pick count of distinct cards the player
// holds. When every eligible player has submitted the room moves to JUDGING.
func (r *Room) Submit(id PlayerID, cardIDs []string) error {
	if r.phase != PhaseSelecting {
		if r.phase == PhaseGameOver {
			return ErrGameOver
		}
		return ErrWrongPhase
	}
	p, ok := r.players[id]
	if !ok {
		return ErrNotPlayer
	}
	if r.IsCzar(id) {
		return ErrIsCzar
	}
	if r.Submitted(id) {
		return ErrAlreadySubmitted
	}

	selected, err := r.resolve(p, cardIDs)
	if err != nil {
		return err
	}
	r.submit(p, selected)
	return nil
}

// PickWinner awards the point for the submission at index in the judging
// order and returns the author's nickname, or DepartedName if they left.
func (r *Room) PickWinner(index int) (string, error) {
	if r.phase != PhaseJudging {
		if r.phase == PhaseGameOver {
			return "", ErrGameOver
		}
		return "", ErrWrongPhase
	}
	if index < 0 || index >= len(r.judging) {
		return "", fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(r.judging))
	}

	r.winningIndex = index
	name := DepartedName
	p, present := r.players[r.judging[index].Author]
	if present {
		p.Score++
		name = p.Nickname
	}

	r.logger.Info("Winner picked", "round", r.round, "winner", name, "index", index)

	if present && p.Score >= r.settings.WinScore {
		return name, r.endGame(name)
	}
	return name, r.setPhase(PhaseSummary)
}

// MarkReady records that id has seen the round summary. It reports whether
// this completed the ready check and started the next round.
func (r *Room) MarkReady(id PlayerID) (bool, error) {
	if r.phase != PhaseSummary {
		if r.phase == PhaseGameOver {
			return false, ErrGameOver
		}
		return false, ErrWrongPhase
	}
	if _, ok := r.players[id]; !ok {
		return false, ErrNotPlayer
	}
	r.ready[id] = struct{}{}
	return r.checkReady(), nil
}

// ReadyStatus returns how many of the players counted by the ready check
// have acknowledged, and how many are counted.
func (r *Room) ReadyStatus() (ready, total int) {
	relevant := r.readyPopulation()
	for _, id := range relevant {
		if _, ok := r.ready[id]; ok {
			ready++
		}
	}
	return ready, len(relevant)
}

// IsReady reports whether id has acknowledged the current summary.
func (r *Room) IsReady(id PlayerID) bool {
	_, ok := r.ready[id]
	return ok
}

// Expire force-resolves the round when its deadline passes: every non-czar
// player who has not submitted and holds enough cards submits a random
// selection. It is a no-op unless round is the live round and the room is
// still SELECTING. It returns the number of forced submissions and whether
// the expiry applied.
func (r *Room) Expire(round uint64) (int, bool) {
	if round != r.round || r.phase != PhaseSelecting {
		return 0, false
	}
	r.timer.Cancel()

	pick := r.prompt.PickCount()
	forced := 0
	for _, id := range slices.Clone(r.order) {
		if r.phase != PhaseSelecting {
			break
		}
		if r.IsCzar(id) || r.Submitted(id) {
			continue
		}
		p := r.players[id]
		if len(p.Hand) < pick {
			continue
		}
		r.submit(p, randutil.Sample(r.rng, p.Hand, pick))
		forced++
	}

	r.logger.Info("Round timed out", "round", round, "forced", forced)

	// Whoever is left cannot submit a legal selection.
	if r.phase == PhaseSelecting {
		if len(r.submissions) == 0 {
			r.stall("nobody could submit")
		} else {
			r.beginJudging()
		}
	}
	return forced, true
}

// Settle re-runs the completeness checks against the current player set.
// The owner calls it after seating changes. A round whose czar has left is
// voided: submitted cards go back to their authors and a new round starts.
func (r *Room) Settle() {
	switch r.phase {
	case PhaseSelecting, PhaseJudging:
		if r.czar == "" && len(r.players) > 0 {
			r.voidRound("czar left")
			return
		}
		if r.phase != PhaseSelecting {
			return
		}
		if len(r.submissions) == 0 && r.eligibleSubmitters() == 0 {
			r.stall("nobody can submit")
			return
		}
		r.checkSubmissions()
	case PhaseSummary:
		r.checkReady()
	}
}

// Close disarms the round timer. The room must not be used afterwards.
func (r *Room) Close() {
	r.timer.Cancel()
}

func (r *Room) setPhase(next Phase) error {
	if !r.phase.CanTransition(next) {
		r.logger.Error("Rejected phase transition", "from", r.phase, "to", next)
		return fmt.Errorf("%w: %s to %s", ErrIllegalTransition, r.phase, next)
	}
	r.phase = next
	return nil
}

func (r *Room) endGame(winner string) error {
	r.timer.Cancel()
	if err := r.setPhase(PhaseGameOver); err != nil {
		return err
	}
	r.winner = winner
	r.logger.Info("Game over", "winner", winner, "rounds", r.round)
	return nil
}

// stall resolves a SELECTING round that has no submissions and nobody left
// to make one. With too few players the round waits, disarmed, until a join
// is settled. The game only ends once no seated player holds enough cards
// and nothing more can be drawn.
func (r *Room) stall(reason string) {
	switch {
	case len(r.players) < MinPlayers:
		r.timer.Cancel()
		r.logger.Info("Round waiting for players", "round", r.round, "players", len(r.players))
	case r.answers.Drawable() == 0 && !r.anyHandCovers(r.prompt.PickCount()):
		r.logger.Info("Out of answer cards, ending game", "round", r.round)
		_ = r.endGame(DeckEmptyName)
	default:
		r.voidRound(reason)
	}
}

func (r *Room) anyHandCovers(pick int) bool {
	for _, p := range r.players {
		if len(p.Hand) >= pick {
			return true
		}
	}
	return false
}

// clearRound releases everything the previous round held.
func (r *Room) clearRound() {
	if r.prompt != nil {
		r.prompts.Discard(r.prompt)
		r.prompt = nil
	}
	if len(r.judging) > 0 {
		for _, s := range r.judging {
			r.answers.Discard(s.Cards...)
		}
	} else {
		for _, cards := range r.submissions {
			r.answers.Discard(cards...)
		}
	}
	r.judging = nil
	clear(r.submissions)
	clear(r.ready)
}

// voidRound hands submitted cards back to their authors and deals a new
// round.
func (r *Room) voidRound(reason string) {
	r.logger.Info("Voiding round", "round", r.round, "reason", reason)

	returned := r.judging
	if len(returned) == 0 {
		for id, cards := range r.submissions {
			returned = append(returned, Submission{Author: id, Cards: cards})
		}
	}
	for _, s := range returned {
		if p, ok := r.players[s.Author]; ok {
			p.Hand = append(p.Hand, s.Cards...)
		} else {
			r.answers.Discard(s.Cards...)
		}
	}
	r.judging = nil
	clear(r.submissions)

	_ = r.StartRound()
}

func (r *Room) deal() {
	for _, id := range r.order {
		p := r.players[id]
		for len(p.Hand) < r.settings.HandSize {
			card, err := r.answers.Draw()
			if err != nil {
				r.logger.Warn("Out of answer cards, dealing stopped early", "round", r.round)
				return
			}
			p.Hand = append(p.Hand, card)
		}
	}
}

func (r *Room) rotateCzar() {
	if len(r.order) == 0 {
		r.czar = ""
		return
	}
	idx := slices.Index(r.order, r.czar)
	if r.czar == "" || idx < 0 {
		r.czar = r.order[r.rng.IntN(len(r.order))]
		return
	}
	r.czar = r.order[(idx+1)%len(r.order)]
}

func (r *Room) resolve(p *Player, cardIDs []string) ([]*deck.Answer, error) {
	pick := r.prompt.PickCount()
	if len(cardIDs) != pick {
		return nil, fmt.Errorf("%w: want %d cards, got %d", ErrBadSelection, pick, len(cardIDs))
	}

	selected := make([]*deck.Answer, 0, pick)
	for _, cid := range cardIDs {
		i := slices.IndexFunc(p.Hand, func(c *deck.Answer) bool { return c.ID() == cid })
		if i < 0 {
			return nil, fmt.Errorf("%w: card %q not in hand", ErrBadSelection, cid)
		}
		if slices.Contains(selected, p.Hand[i]) {
			return nil, fmt.Errorf("%w: card %q given twice", ErrBadSelection, cid)
		}
		selected = append(selected, p.Hand[i])
	}
	return selected, nil
}

// submit moves selected out of the hand and runs the completeness check.
func (r *Room) submit(p *Player, selected []*deck.Answer) {
	p.Hand = slices.DeleteFunc(p.Hand, func(c *deck.Answer) bool {
		return slices.Contains(selected, c)
	})
	r.submissions[p.ID] = selected
	r.checkSubmissions()
}

// eligibleSubmitters counts non-czar players who hold a card or have
// already submitted. A player left without cards cannot act and is not
// waited for.
func (r *Room) eligibleSubmitters() int {
	n := 0
	for _, id := range r.order {
		if r.IsCzar(id) {
			continue
		}
		if len(r.players[id].Hand) > 0 || r.Submitted(id) {
			n++
		}
	}
	return n
}

func (r *Room) checkSubmissions() bool {
	if len(r.submissions) < r.eligibleSubmitters() {
		return false
	}

	if len(r.submissions) == 0 {
		return false
	}
	return r.beginJudging()
}

func (r *Room) beginJudging() bool {
	r.timer.Cancel()
	if err := r.setPhase(PhaseJudging); err != nil {
		return false
	}

	r.judging = make([]Submission, 0, len(r.submissions))
	for _, id := range r.order {
		if cards, ok := r.submissions[id]; ok {
			r.judging = append(r.judging, Submission{Author: id, Cards: cards})
		}
	}
	r.rng.Shuffle(len(r.judging), func(i, j int) {
		r.judging[i], r.judging[j] = r.judging[j], r.judging[i]
	})

	r.logger.Debug("Judging started", "round", r.round, "submissions", len(r.judging))
	return true
}

// readyPopulation is the set the ready check waits for: players holding
// cards, or everyone if nobody does.
func (r *Room) readyPopulation() []PlayerID {
	var relevant []PlayerID
	for _, id := range r.order {
		if len(r.players[id].Hand) > 0 {
			relevant = append(relevant, id)
		}
	}
	if len(relevant) == 0 {
		relevant = slices.Clone(r.order)
	}
	return relevant
}

func (r *Room) checkReady() bool {
	ready, total := r.ReadyStatus()
	if total == 0 || ready < total {
		return false
	}
	_ = r.StartRound()
	return true
}
