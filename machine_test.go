// Phase machine tests
//
// Copyright (c) 2025  The go-coup authors
//
// This file is part of go-coup.
//
// go-coup is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-coup is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-coup. If not, see
// <http://www.gnu.org/licenses/>

package coup

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNames = []string{"Dave", "Garry", "Alice", "Bob", "Carol", "Erin"}

// testGame builds a game with fixed hands, seat one up first, and the
// rest of the starting deck in the draw pile.
func testGame(t *testing.T, hands ...Hand) *Game {
	t.Helper()
	require.GreaterOrEqual(t, len(hands), MinPlayers)

	dealt := make(map[Card]int)
	for _, h := range hands {
		dealt[h.Cards[0]]++
		dealt[h.Cards[1]]++
	}
	var rest []Card
	for _, c := range startingDeck {
		if dealt[c] > 0 {
			dealt[c]--
			continue
		}
		rest = append(rest, c)
	}
	require.Len(t, rest, DeckSize-2*len(hands), "hands must come from one starting deck")

	seats := make(map[PlayerId]*seat, len(hands))
	order := make([]PlayerId, len(hands))
	for i, h := range hands {
		id := PlayerId(i + 1)
		seats[id] = &seat{name: testNames[i], coins: 2, hand: h, alive: true}
		order[i] = id
	}
	pile, _ := NewCoinPile(len(hands))

	g := &Game{
		players: &PlayerMap{seats: seats, order: order},
		coins:   pile,
		deck:    &Deck{cards: rest},
	}
	g.phase = Wait{Actions: g.players.GenerateActions(g.players.Current())}
	return g
}

// fund sets a seat's coins, moving the difference to or from the
// treasury so the conservation invariant keeps holding.
func fund(g *Game, id PlayerId, coins uint8) {
	g.coins.coins = g.coins.coins + g.players.Coins(id) - coins
	g.players.SetCoins(id, coins)
}

func playKind(t *testing.T, g *Game, kind Act, victim PlayerId) {
	t.Helper()
	wait, ok := g.Phase().(Wait)
	require.True(t, ok, "must be in Wait to play")
	for _, a := range wait.Actions.All() {
		if a.Kind == kind && a.Victim == victim {
			g.Play(a)
			return
		}
	}
	t.Fatalf("action %s against %s was not offered", kind, victim)
}

// checkConservation verifies the two bookkeeping invariants: coins in
// the treasury plus coins on alive seats sum to the starting fifty,
// and the deck plus every hand is still the starting card multiset.
func checkConservation(t *testing.T, g *Game) {
	t.Helper()

	coins := int(g.CoinsRemaining())
	for _, id := range g.players.Alive() {
		coins += int(g.players.Coins(id))
	}
	require.Equal(t, StartingCoins, coins, "coin conservation")

	counts := make(map[Card]int)
	for _, c := range g.deck.Cards() {
		counts[c]++
	}
	for id := range g.players.seats {
		for _, c := range g.players.HandFor(id).Cards {
			counts[c]++
		}
	}
	for _, c := range [...]Card{Ambassador, Assassin, Captain, Contessa, Duke} {
		require.Equal(t, 3, counts[c], "three copies of %s", c)
	}
}

func TestNewGameDealsFairly(t *testing.T) {
	g := NewGameWithNames([]string{"Dave", "Garry"})

	require.Equal(t, uint8(46), g.CoinsRemaining())
	require.Equal(t, 11, g.DeckSize())
	require.Len(t, g.players.Alive(), 2)
	for _, id := range g.players.Alive() {
		require.True(t, g.players.HandFor(id).Full())
		require.Equal(t, uint8(2), g.players.Coins(id))
	}
	checkConservation(t, g)

	_, ok := g.Phase().(Wait)
	require.True(t, ok)
}

func TestIncomeRound(t *testing.T) {
	g := testGame(t, FullHand(Duke, Contessa), FullHand(Captain, Ambassador))

	playKind(t, g, Income, 0)
	safe, ok := g.Phase().(Safe)
	require.True(t, ok)
	assert.Equal(t, Income, safe.Kind)
	assert.Equal(t, Outcome{Kind: GainCoins, Actor: 1, Amount: 1}, g.Outcome())

	g.Advance()
	_, ok = g.Phase().(Wait)
	require.True(t, ok)
	assert.Equal(t, uint8(3), g.players.Coins(1))
	assert.Equal(t, uint8(45), g.CoinsRemaining())
	assert.Equal(t, PlayerId(2), g.players.Current())
	checkConservation(t, g)
}

func TestActionGenerationBoundaries(t *testing.T) {
	g := testGame(t, FullHand(Duke, Contessa), FullHand(Captain, Ambassador))
	p := g.players

	p.SetCoins(1, 2)
	pa := p.GenerateActions(1)
	assert.Empty(t, pa.Assassinations)
	assert.Empty(t, pa.Coups)
	assert.Len(t, pa.Basic, 4)

	p.SetCoins(1, 3)
	pa = p.GenerateActions(1)
	assert.Len(t, pa.Assassinations, 1)
	assert.Empty(t, pa.Coups)

	p.SetCoins(1, 7)
	pa = p.GenerateActions(1)
	assert.Len(t, pa.Coups, 1)
	assert.Len(t, pa.Basic, 4)

	p.SetCoins(1, 9)
	pa = p.GenerateActions(1)
	assert.NotEmpty(t, pa.Basic)

	// Ten coins force a coup.
	p.SetCoins(1, 10)
	pa = p.GenerateActions(1)
	assert.Empty(t, pa.Basic)
	assert.Empty(t, pa.Steals)
	assert.Empty(t, pa.Assassinations)
	assert.Equal(t, []Action{{Actor: 1, Kind: Coup, Victim: 2}}, pa.Coups)
}

func TestStealOffersTrackVictimCoins(t *testing.T) {
	g := testGame(t, FullHand(Duke, Contessa), FullHand(Captain, Ambassador),
		FullHand(Assassin, Assassin))
	p := g.players

	p.SetCoins(2, 0)
	p.SetCoins(3, 1)
	pa := p.GenerateActions(1)
	require.Len(t, pa.Steals, 1)
	assert.Equal(t, PlayerId(3), pa.Steals[0].Victim)
}

func TestChallengeAgainstLiar(t *testing.T) {
	g := testGame(t, FullHand(Captain, Ambassador), FullHand(Duke, Contessa))

	playKind(t, g, Tax, 0)
	oc, ok := g.Phase().(OnlyChallengeable)
	require.True(t, ok)
	require.Contains(t, oc.Challenges, PlayerId(2))

	g.RaiseChallenge(oc.Challenges[2])
	ch, ok := g.Phase().(Challenged)
	require.True(t, ok)
	assert.Equal(t, Outcome{Kind: LosesInfluence, Victim: 1}, g.Outcome())
	assert.Equal(t, PlayerId(1), ch.Actor)

	g.Advance()
	cv, ok := g.Phase().(ChooseVictimCard)
	require.True(t, ok)
	assert.Equal(t, PlayerId(1), cv.Victim)

	g.ChooseVictim(cv.Choices[0])
	_, ok = g.Phase().(Wait)
	require.True(t, ok)
	// No tax was paid out.
	assert.Equal(t, uint8(2), g.players.Coins(1))
	assert.Equal(t, PlayerId(2), g.players.Current())
	checkConservation(t, g)
}

func TestChallengeAgainstLiarOnLastCard(t *testing.T) {
	g := testGame(t, FullHand(Captain, Ambassador), FullHand(Duke, Contessa))
	g.players.SetHand(1, FullHand(Captain, Ambassador).Reveal(Captain))

	playKind(t, g, Tax, 0)
	oc := g.Phase().(OnlyChallengeable)
	g.RaiseChallenge(oc.Challenges[2])
	g.Advance()

	_, ok := g.Phase().(End)
	require.True(t, ok)
	assert.Equal(t, Summary{Winner: 2}, g.Summary())
	checkConservation(t, g)
}

func TestChallengeDefenseReplacesCard(t *testing.T) {
	g := testGame(t, FullHand(Duke, Contessa), FullHand(Captain, Ambassador))
	deckBefore := g.DeckSize()

	playKind(t, g, Tax, 0)
	oc := g.Phase().(OnlyChallengeable)
	g.RaiseChallenge(oc.Challenges[2])
	assert.Equal(t, Outcome{Kind: LosesInfluence, Victim: 2}, g.Outcome())

	g.Advance()
	cv, ok := g.Phase().(ChooseVictimCard)
	require.True(t, ok)
	assert.Equal(t, PlayerId(2), cv.Victim)

	// Tax was still paid out, and the proven Duke went back into the
	// deck with a replacement drawn.
	assert.Equal(t, uint8(5), g.players.Coins(1))
	assert.Equal(t, deckBefore, g.DeckSize())
	checkConservation(t, g)

	g.ChooseVictim(cv.Choices[0])
	_, ok = g.Phase().(Wait)
	require.True(t, ok)
	checkConservation(t, g)
}

func TestManyDefensesPreserveDeck(t *testing.T) {
	for i := 0; i < 32; i++ {
		g := testGame(t, FullHand(Duke, Contessa), FullHand(Captain, Ambassador))

		playKind(t, g, Tax, 0)
		oc := g.Phase().(OnlyChallengeable)
		g.RaiseChallenge(oc.Challenges[2])
		g.Advance()
		checkConservation(t, g)
	}
}

func TestStealResolution(t *testing.T) {
	g := testGame(t, FullHand(Duke, Contessa), FullHand(Captain, Ambassador))

	playKind(t, g, Steal, 2)
	r, ok := g.Phase().(Reactable)
	require.True(t, ok)
	assert.Equal(t, Outcome{Kind: LoseCoins, Actor: 2, Amount: 2}, g.Outcome())
	assert.Equal(t, PlayerId(2), r.Victim)

	g.Advance()
	_, ok = g.Phase().(Wait)
	require.True(t, ok)
	assert.Equal(t, uint8(4), g.players.Coins(1))
	assert.Equal(t, uint8(0), g.players.Coins(2))
	checkConservation(t, g)
}

func TestStealFromOneCoinVictim(t *testing.T) {
	g := testGame(t, FullHand(Duke, Contessa), FullHand(Captain, Ambassador))
	g.players.SetCoins(2, 1)

	playKind(t, g, Steal, 2)
	assert.Equal(t, Outcome{Kind: LoseCoins, Actor: 2, Amount: 1}, g.Outcome())
	g.Advance()
	assert.Equal(t, uint8(3), g.players.Coins(1))
	assert.Equal(t, uint8(0), g.players.Coins(2))
}

func TestAssassinationBlockedByContessa(t *testing.T) {
	g := testGame(t, FullHand(Assassin, Duke), FullHand(Captain, Contessa))
	fund(g, 1, 3)

	playKind(t, g, Assassinate, 2)
	r, ok := g.Phase().(Reactable)
	require.True(t, ok)

	block, ok := r.Reactions.Blocks.ByClaim(Contessa)
	require.True(t, ok)
	g.RaiseBlock(block)

	b, ok := g.Phase().(Blocked)
	require.True(t, ok)
	assert.Equal(t, PlayerId(2), b.Blocker)
	assert.Equal(t, Outcome{Kind: LoseCoins, Actor: 1, Amount: 3}, g.Outcome())

	// Nobody challenges the Contessa; the cost is still paid.
	g.Advance()
	_, ok = g.Phase().(Wait)
	require.True(t, ok)
	assert.Equal(t, uint8(0), g.players.Coins(1))
	assert.True(t, g.players.HandFor(2).Full())
	checkConservation(t, g)
}

func TestForeignAidBlockedByDuke(t *testing.T) {
	g := testGame(t, FullHand(Assassin, Captain), FullHand(Duke, Contessa))

	playKind(t, g, ForeignAid, 0)
	ob, ok := g.Phase().(OnlyBlockable)
	require.True(t, ok)
	require.Contains(t, ob.Blocks, PlayerId(2))

	g.RaiseBlock(ob.Blocks[2])
	b := g.Phase().(Blocked)
	assert.Equal(t, Outcome{Kind: LoseTurn, Victim: 1}, g.Outcome())
	require.NotContains(t, b.Challenges, PlayerId(2), "the blocker cannot challenge their own block")

	g.Advance()
	_, ok = g.Phase().(Wait)
	require.True(t, ok)
	// The actor gained nothing.
	assert.Equal(t, uint8(2), g.players.Coins(1))
	assert.Equal(t, uint8(46), g.CoinsRemaining())
}

func TestChallengedBlockCaughtLying(t *testing.T) {
	g := testGame(t, FullHand(Captain, Duke), FullHand(Assassin, Contessa))

	playKind(t, g, Steal, 2)
	r := g.Phase().(Reactable)
	block, ok := r.Reactions.Blocks.ByClaim(Captain)
	require.True(t, ok)
	g.RaiseBlock(block)

	b := g.Phase().(Blocked)
	require.Contains(t, b.Challenges, PlayerId(1))
	g.RaiseChallenge(b.Challenges[1])

	// The blocker claimed a Captain they do not hold.
	assert.Equal(t, Outcome{Kind: LosesInfluence, Victim: 2}, g.Outcome())
	g.Advance()
	cv, ok := g.Phase().(ChooseVictimCard)
	require.True(t, ok)
	assert.Equal(t, PlayerId(2), cv.Victim)
	checkConservation(t, g)
}

func TestChallengedAssassinationBlockDefended(t *testing.T) {
	g := testGame(t, FullHand(Assassin, Duke), FullHand(Captain, Contessa))
	fund(g, 1, 3)

	playKind(t, g, Assassinate, 2)
	r := g.Phase().(Reactable)
	block, _ := r.Reactions.Blocks.ByClaim(Contessa)
	g.RaiseBlock(block)

	b := g.Phase().(Blocked)
	g.RaiseChallenge(b.Challenges[1])
	g.Advance()

	// The Contessa was real: the challenger loses influence, the
	// block stands, and the assassin still paid.
	cv, ok := g.Phase().(ChooseVictimCard)
	require.True(t, ok)
	assert.Equal(t, PlayerId(1), cv.Victim)
	assert.Equal(t, uint8(0), g.players.Coins(1))
	assert.True(t, g.players.HandFor(2).HasCard(Contessa) || g.players.HandFor(2).Full())
	checkConservation(t, g)
}

func TestCoupEliminatesAndRefunds(t *testing.T) {
	g := testGame(t, FullHand(Duke, Contessa), FullHand(Captain, Ambassador))
	fund(g, 1, 7)
	g.players.SetHand(2, FullHand(Captain, Ambassador).Reveal(Captain))

	playKind(t, g, Coup, 2)
	safe := g.Phase().(Safe)
	assert.Equal(t, Coup, safe.Kind)
	assert.Equal(t, Outcome{Kind: LosesInfluence, Victim: 2}, g.Outcome())

	g.Advance()
	_, ok := g.Phase().(End)
	require.True(t, ok)
	assert.Equal(t, Summary{Winner: 1}, g.Summary())
	// The coup fee and the victim's coins are back in the treasury;
	// the winner spent everything they had.
	assert.Equal(t, uint8(StartingCoins), g.CoinsRemaining())
	checkConservation(t, g)
}

func TestExchangeTwoFromFour(t *testing.T) {
	g := testGame(t, FullHand(Ambassador, Captain), FullHand(Duke, Contessa))
	// Arrange the next two draws to be Dukes.
	g.deck = &Deck{cards: []Card{Assassin, Assassin, Assassin, Contessa, Contessa,
		Captain, Captain, Ambassador, Ambassador, Duke, Duke}}

	playKind(t, g, Exchange, 0)
	g.Advance()

	ct, ok := g.Phase().(ChooseTwoFromFour)
	require.True(t, ok)
	assert.Equal(t, [4]Card{Duke, Duke, Ambassador, Captain}, ct.Choices)

	g.ChooseTwo(Duke, Duke)
	_, ok = g.Phase().(Wait)
	require.True(t, ok)
	assert.Equal(t, FullHand(Duke, Duke), g.players.HandFor(1))
	assert.Equal(t, 11, g.DeckSize())
	checkConservation(t, g)
}

func TestExchangeRejectsUnmatchedDuplicates(t *testing.T) {
	g := testGame(t, FullHand(Captain, Contessa), FullHand(Assassin, Assassin))
	g.deck = &Deck{cards: []Card{Contessa, Contessa, Captain, Captain, Assassin,
		Ambassador, Ambassador, Ambassador, Duke, Duke, Duke}}

	playKind(t, g, Exchange, 0)
	g.Advance()

	ct := g.Phase().(ChooseTwoFromFour)
	assert.Equal(t, [4]Card{Duke, Duke, Captain, Contessa}, ct.Choices)
	require.Panics(t, func() { g.ChooseTwo(Captain, Captain) })
}

func TestExchangeOneFromThree(t *testing.T) {
	g := testGame(t, FullHand(Ambassador, Captain), FullHand(Duke, Contessa))
	g.players.SetHand(1, FullHand(Ambassador, Captain).Reveal(Captain))
	g.deck = &Deck{cards: []Card{Assassin, Assassin, Assassin, Contessa, Contessa,
		Captain, Captain, Ambassador, Ambassador, Duke, Duke}}

	playKind(t, g, Exchange, 0)
	g.Advance()

	co, ok := g.Phase().(ChooseOneFromThree)
	require.True(t, ok)
	assert.Equal(t, [3]Card{Duke, Duke, Ambassador}, co.Choices)

	g.ChooseOne(Duke)
	_, ok = g.Phase().(Wait)
	require.True(t, ok)
	last, ok := g.players.HandFor(1).Last()
	require.True(t, ok)
	assert.Equal(t, Duke, last)
	assert.Equal(t, 11, g.DeckSize())
	checkConservation(t, g)
}

func TestEliminatedCurrentActorDoesNotSkipNext(t *testing.T) {
	g := testGame(t, FullHand(Captain, Ambassador), FullHand(Duke, Contessa),
		FullHand(Assassin, Assassin))
	g.players.SetHand(1, FullHand(Captain, Ambassador).Reveal(Captain))

	// Seat one lies about a Duke with one card left and dies for it.
	playKind(t, g, Tax, 0)
	oc := g.Phase().(OnlyChallengeable)
	g.RaiseChallenge(oc.Challenges[2])
	g.Advance()

	_, ok := g.Phase().(Wait)
	require.True(t, ok)
	// The turn passes to seat two exactly once.
	assert.Equal(t, PlayerId(2), g.players.Current())
	assert.Equal(t, []PlayerId{2, 3}, g.players.Alive())
	checkConservation(t, g)
}

func TestIllegalTransitionsPanic(t *testing.T) {
	g := testGame(t, FullHand(Duke, Contessa), FullHand(Captain, Ambassador))

	require.Panics(t, func() { g.Advance() }, "Wait has no advance")
	require.Panics(t, func() { g.Summary() }, "Summary before End")
	require.Panics(t, func() { g.ChooseVictim(Duke) })
	require.Panics(t, func() {
		g.Play(Action{Actor: 1, Kind: Coup, Victim: 2}) // only two coins
	})
	require.Panics(t, func() {
		g.Play(Action{Actor: 2, Kind: Income}) // not their turn
	})

	playKind(t, g, Income, 0)
	require.Panics(t, func() { g.Play(Action{Actor: 1, Kind: Income}) }, "Play outside Wait")
	require.Panics(t, func() {
		g.RaiseChallenge(Challenge{Actor: 1, Challenger: 2, Kind: ClaimTax})
	}, "Safe cannot be challenged")
	require.Panics(t, func() {
		g.RaiseBlock(Block{Actor: 1, Blocker: 2, Kind: ForeignAid, Claim: Duke})
	}, "Safe cannot be blocked")
}

func TestUniqueSeatsInRing(t *testing.T) {
	g := testGame(t, FullHand(Duke, Contessa), FullHand(Captain, Ambassador),
		FullHand(Assassin, Assassin), FullHand(Duke, Duke))

	seen := make(map[PlayerId]bool)
	for _, id := range g.players.Alive() {
		require.False(t, seen[id], "seat %s appears twice", id)
		seen[id] = true
	}

	ids := g.players.Alive()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assert.Equal(t, []PlayerId{1, 2, 3, 4}, ids)
}
