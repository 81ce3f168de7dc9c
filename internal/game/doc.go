// Package game implements the per-room state machine of a fill-in-the-blank
// party card game.
//
// The main type is Room, which owns a room's working decks, the seated
// players and their hands, and the round lifecycle:
//
//	LOBBY -> SELECTING -> JUDGING -> SUMMARY -> SELECTING ...
//
// with GAME_OVER reachable when a player reaches the win score or the cards
// run out.
//
// # Basic Usage
//
//	r := game.NewRoom(game.Config{
//	    Name:     "friday",
//	    Owner:    "alice",
//	    Settings: game.Settings{MaxPlayers: 8, HandSize: 10, WinScore: 5},
//	    Pools:    pools,
//	})
//	r.AddPlayer("c1", "alice")
//	r.AddPlayer("c2", "bob")
//	r.Start("c1")
//
// # Concurrency
//
// A Room is not safe for concurrent use. Each room is a single-writer
// domain: the caller holds one lock per room across every call, including
// the Expire call made when the round timer fires. Timer callbacks carry the
// round number they were armed for and Expire ignores stale rounds.
//
// # Deterministic Testing
//
// Pass a seeded source and a mock clock:
//
//	rng := randutil.New(42)
//	clock := quartz.NewMock(t)
//	r := game.NewRoom(game.Config{Rand: rng, Clock: clock, ...})
package game
