package game

// View is one player's snapshot of the room. Submissions are listed while
// JUDGING and in SUMMARY; authorship is only filled in for SUMMARY.
type View struct {
	Room         string
	Round        uint64
	Phase        Phase
	Prompt       *PromptView
	Hand         []CardView
	IsCzar       bool
	Submissions  []SubmissionView
	HasSubmitted bool
	Ready        int
	ReadyTotal   int
	AmIReady     bool
	Players      []PlayerView
	Winner       string
	CanStart     bool
}

type PromptView struct {
	Text string
	Pick int
}

type CardView struct {
	ID   string
	Text string
}

type SubmissionView struct {
	Index    int
	Text     string
	Author   string
	Winner   bool
	Revealed bool
}

type PlayerView struct {
	Nickname string
	Score    int
	IsCzar   bool
}

// View builds the snapshot for id. An id that is not seated gets the public
// parts only.
func (r *Room) View(id PlayerID) View {
	v := View{
		Room:   r.name,
		Round:  r.round,
		Phase:  r.phase,
		IsCzar: r.IsCzar(id),
		Winner: r.winner,
	}

	if r.prompt != nil {
		v.Prompt = &PromptView{Text: r.prompt.Masked(), Pick: r.prompt.PickCount()}
	}

	if p, ok := r.players[id]; ok {
		v.Hand = make([]CardView, 0, len(p.Hand))
		for _, c := range p.Hand {
			v.Hand = append(v.Hand, CardView{ID: c.ID(), Text: c.Base()})
		}
		v.CanStart = r.phase == PhaseLobby && r.CanStart(p.Nickname)
	}
	v.HasSubmitted = r.Submitted(id)
	v.AmIReady = r.IsReady(id)

	if r.phase == PhaseSummary {
		v.Ready, v.ReadyTotal = r.ReadyStatus()
	}

	reveal := r.phase == PhaseSummary
	switch r.phase {
	case PhaseJudging, PhaseSummary:
		for i, s := range r.judging {
			sv := SubmissionView{Index: i, Text: r.prompt.Fill(s.Cards)}
			if reveal {
				sv.Revealed = true
				sv.Winner = i == r.winningIndex
				sv.Author = DepartedName
				if p, ok := r.players[s.Author]; ok {
					sv.Author = p.Nickname
				}
			}
			v.Submissions = append(v.Submissions, sv)
		}
	}

	v.Players = make([]PlayerView, 0, len(r.order))
	for _, pid := range r.order {
		p := r.players[pid]
		v.Players = append(v.Players, PlayerView{
			Nickname: p.Nickname,
			Score:    p.Score,
			IsCzar:   r.IsCzar(pid),
		})
	}
	return v
}
