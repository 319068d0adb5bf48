// The game phase machine
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

// A game is always in exactly one phase, and each phase admits only
// its own transitions.  The phases form a decision tree:
//
//	Wait -> Safe              -> Wait/ChooseVictimCard/End
//	     -> OnlyChallengeable -> Challenged -> Wait/ChooseVictimCard/End
//	                          -> Wait/End (exchange detours through
//	                             ChooseOneFromThree/ChooseTwoFromFour)
//	     -> OnlyBlockable     -> Blocked -> Challenged -> ...
//	                                     -> Wait
//	                          -> Wait
//	     -> Reactable         -> Challenged -> ...
//	                          -> Blocked -> ...
//	                          -> ChooseVictimCard -> Wait
//	                          -> Wait/End
//
// Transitions are driven from the outside (the per-game coordinator
// prompts players and feeds their answers in), so any input that is
// not legal for the current phase is a caller bug and panics.

package coup

import "fmt"

// Phase is the tagged union of game phases.  The concrete type of a
// Game's phase decides which transitions are legal.
type Phase interface {
	isPhase()
}

// Wait is the base phase: the current seat must pick an action.
type Wait struct {
	Actions PossibleActions
}

// Safe holds an action that cannot be countered (Income, Coup).
type Safe struct {
	Actor  PlayerId
	Kind   Act
	Victim PlayerId
}

// OnlyChallengeable holds an action that can be challenged but not
// blocked (Tax, Exchange).
type OnlyChallengeable struct {
	Actor      PlayerId
	Kind       Act
	Challenges PossibleChallenges
}

// OnlyBlockable holds a foreign aid declaration, which any seat may
// block with a Duke claim but nobody can challenge.
type OnlyBlockable struct {
	Actor  PlayerId
	Blocks PossibleBlocks
}

// Reactable holds a Steal or Assassinate: the victim may block,
// everyone may challenge.
type Reactable struct {
	Actor     PlayerId
	Kind      Act
	Victim    PlayerId
	Reactions PossibleReactions
}

// Blocked holds a declared block awaiting its own challenge window.
type Blocked struct {
	Actor      PlayerId
	Blocker    PlayerId
	Kind       Act
	Victim     PlayerId
	Claim      Card
	Challenges PossibleChallenges
}

// Challenged holds a raised challenge.  Actor is the seat whose claim
// is disputed (the blocker, for challenged blocks); OrigActor is the
// seat that declared the underlying action.
type Challenged struct {
	Actor      PlayerId
	Challenger PlayerId
	Kind       ClaimKind
	StealClaim Card
	OrigActor  PlayerId
}

// ChooseVictimCard asks a two-card victim which influence to give up.
type ChooseVictimCard struct {
	Victim  PlayerId
	Choices [2]Card
}

// ChooseOneFromThree asks a one-card exchanger which card to keep.
type ChooseOneFromThree struct {
	Actor   PlayerId
	Choices [3]Card
}

// ChooseTwoFromFour asks a two-card exchanger which cards to keep.
type ChooseTwoFromFour struct {
	Actor   PlayerId
	Choices [4]Card
}

// End is terminal.
type End struct{}

func (Wait) isPhase()               {}
func (Safe) isPhase()               {}
func (OnlyChallengeable) isPhase()  {}
func (OnlyBlockable) isPhase()      {}
func (Reactable) isPhase()          {}
func (Blocked) isPhase()            {}
func (Challenged) isPhase()         {}
func (ChooseVictimCard) isPhase()   {}
func (ChooseOneFromThree) isPhase() {}
func (ChooseTwoFromFour) isPhase()  {}
func (End) isPhase()                {}

// A Game owns the seats, the treasury and the deck of one match.  It
// is not safe for concurrent use; a single coordinator drives it.
type Game struct {
	players *PlayerMap
	coins   CoinPile
	deck    *Deck
	phase   Phase
}

// NewGame starts a game with COUNT anonymous seats.
func NewGame(count int) *Game {
	names := make([]string, count)
	for i := range names {
		names[i] = fmt.Sprintf("Player %d", i+1)
	}
	return NewGameWithNames(names)
}

// NewGameWithNames starts a game with one seat per name.
func NewGameWithNames(names []string) *Game {
	deck, hands := NewDeck(len(names))
	pile, coins := NewCoinPile(len(names))
	players := NewPlayerMap(names, coins, hands)

	g := &Game{players: players, coins: pile, deck: deck}
	g.phase = Wait{Actions: players.GenerateActions(players.Current())}
	return g
}

// Phase returns the current phase variant.  In Wait the offered
// actions are generated afresh from the seats as they are now.
func (g *Game) Phase() Phase {
	if _, ok := g.phase.(Wait); ok {
		g.phase = Wait{Actions: g.players.GenerateActions(g.players.Current())}
	}
	return g.phase
}

// Players exposes the seat table.
func (g *Game) Players() *PlayerMap {
	return g.players
}

// CoinsRemaining is the treasury's balance.
func (g *Game) CoinsRemaining() uint8 {
	return g.coins.Remaining()
}

// DeckSize is the number of undrawn cards.
func (g *Game) DeckSize() int {
	return g.deck.Size()
}

// InfoFor assembles the snapshot VIEWER receives before a turn: their
// own hand, and name/coins/revealed cards for everyone else.
func (g *Game) InfoFor(viewer PlayerId) Info {
	views := make(map[PlayerId]PlayerView, g.players.Count())
	for _, id := range g.players.Alive() {
		v := PlayerView{
			Name:          g.players.Name(id),
			Coins:         g.players.Coins(id),
			RevealedCards: g.players.HandFor(id).Revealed(),
		}
		if id == viewer {
			hand := g.players.HandFor(id)
			v = PlayerView{Name: v.Name, Coins: v.Coins, Hand: &hand}
		}
		views[id] = v
	}
	for _, id := range g.players.Dead() {
		views[id] = PlayerView{
			Name:          g.players.Name(id),
			RevealedCards: g.players.HandFor(id).Revealed(),
		}
	}
	return Info{
		PlayerViews:    views,
		CurrentPlayer:  g.players.Current(),
		CoinsRemaining: g.coins.Remaining(),
	}
}

// Play declares ACTION.  Legal in Wait, for actions in the generated
// set only.
func (g *Game) Play(action Action) {
	wait, ok := g.phase.(Wait)
	if !ok {
		panic(fmt.Sprintf("Play is illegal in %T", g.phase))
	}
	if !wait.Actions.Contains(action) {
		panic(fmt.Sprintf("Action %+v was not offered", action))
	}

	actor := action.Actor
	switch action.Kind {
	case Income, Coup:
		g.phase = Safe{Actor: actor, Kind: action.Kind, Victim: action.Victim}
	case Tax:
		g.phase = OnlyChallengeable{Actor: actor, Kind: Tax,
			Challenges: g.players.GenerateChallenges(actor, ClaimTax, 0)}
	case Exchange:
		g.phase = OnlyChallengeable{Actor: actor, Kind: Exchange,
			Challenges: g.players.GenerateChallenges(actor, ClaimExchange, 0)}
	case ForeignAid:
		g.phase = OnlyBlockable{Actor: actor, Blocks: g.players.GenerateBlocks(actor)}
	case Steal, Assassinate:
		g.phase = Reactable{Actor: actor, Kind: action.Kind, Victim: action.Victim,
			Reactions: g.players.GenerateReactions(actor, action.Kind, action.Victim)}
	default:
		panic(fmt.Sprintf("Illegal act: %d", uint8(action.Kind)))
	}
}

// RaiseChallenge applies a challenge from the phase's generated set.
// Legal in OnlyChallengeable, Reactable and Blocked.
func (g *Game) RaiseChallenge(c Challenge) {
	switch ph := g.phase.(type) {
	case OnlyChallengeable:
		if offered, ok := ph.Challenges[c.Challenger]; !ok || offered != c {
			panic(fmt.Sprintf("Challenge %+v was not offered", c))
		}
		g.phase = Challenged{Actor: ph.Actor, Challenger: c.Challenger,
			Kind: c.Kind, OrigActor: ph.Actor}
	case Reactable:
		if offered, ok := ph.Reactions.Challenges[c.Challenger]; !ok || offered != c {
			panic(fmt.Sprintf("Challenge %+v was not offered", c))
		}
		g.phase = Challenged{Actor: ph.Actor, Challenger: c.Challenger,
			Kind: c.Kind, OrigActor: ph.Actor}
	case Blocked:
		if offered, ok := ph.Challenges[c.Challenger]; !ok || offered != c {
			panic(fmt.Sprintf("Challenge %+v was not offered", c))
		}
		g.phase = Challenged{Actor: ph.Blocker, Challenger: c.Challenger,
			Kind: c.Kind, StealClaim: c.StealClaim, OrigActor: ph.Actor}
	default:
		panic(fmt.Sprintf("RaiseChallenge is illegal in %T", g.phase))
	}
}

// RaiseBlock applies a block from the phase's generated set.  Legal
// in OnlyBlockable and Reactable.  A block opens its own challenge
// window against the blocker's claim, open to every other alive seat.
func (g *Game) RaiseBlock(b Block) {
	switch ph := g.phase.(type) {
	case OnlyBlockable:
		if offered, ok := ph.Blocks[b.Blocker]; !ok || offered != b {
			panic(fmt.Sprintf("Block %+v was not offered", b))
		}
	case Reactable:
		if offered, ok := ph.Reactions.Blocks.ByClaim(b.Claim); !ok || offered != b {
			panic(fmt.Sprintf("Block %+v was not offered", b))
		}
	default:
		panic(fmt.Sprintf("RaiseBlock is illegal in %T", g.phase))
	}

	var kind ClaimKind
	switch b.Kind {
	case ForeignAid:
		kind = ClaimBlockForeignAid
	case Assassinate:
		kind = ClaimBlockAssassination
	case Steal:
		kind = ClaimBlockSteal
	default:
		panic(fmt.Sprintf("Act %s is not blockable", b.Kind))
	}
	var stealClaim Card
	if kind == ClaimBlockSteal {
		stealClaim = b.Claim
	}
	g.phase = Blocked{Actor: b.Actor, Blocker: b.Blocker, Kind: b.Kind,
		Victim: b.Victim, Claim: b.Claim,
		Challenges: g.players.GenerateChallenges(b.Blocker, kind, stealClaim)}
}

// Outcome computes the observable effect the current phase will have
// when advanced without further reactions.
func (g *Game) Outcome() Outcome {
	switch ph := g.phase.(type) {
	case Safe:
		if ph.Kind == Income {
			return Outcome{Kind: GainCoins, Actor: ph.Actor, Amount: 1}
		}
		return Outcome{Kind: LosesInfluence, Victim: ph.Victim}
	case OnlyChallengeable:
		if ph.Kind == Tax {
			return Outcome{Kind: GainCoins, Actor: ph.Actor, Amount: 3}
		}
		return Outcome{Kind: ExchangesCards, Actor: ph.Actor}
	case OnlyBlockable:
		return Outcome{Kind: GainCoins, Actor: ph.Actor, Amount: 2}
	case Reactable:
		if ph.Kind == Steal {
			return Outcome{Kind: LoseCoins, Actor: ph.Victim, Amount: stealAmount(g.players.Coins(ph.Victim))}
		}
		return Outcome{Kind: LosesInfluence, Victim: ph.Victim}
	case Blocked:
		if ph.Kind == Assassinate {
			return Outcome{Kind: LoseCoins, Actor: ph.Actor, Amount: uint8(DepositAssassinate)}
		}
		return Outcome{Kind: LoseTurn, Victim: ph.Actor}
	case Challenged:
		loser := g.players.ChallengeLoser(ph.Actor, ph.Challenger, challengeClaim(ph))
		return Outcome{Kind: LosesInfluence, Victim: loser}
	default:
		panic(fmt.Sprintf("Outcome is illegal in %T", g.phase))
	}
}

// Advance resolves the current phase: the action lands (no reaction
// arrived), the block stands (no challenge arrived), or the challenge
// is decided.
func (g *Game) Advance() {
	switch ph := g.phase.(type) {
	case Safe:
		if ph.Kind == Income {
			g.withdraw(WithdrawIncome, ph.Actor)
			g.endTurn()
			return
		}
		g.spend(DepositCoup, ph.Actor)
		g.loseInfluence(ph.Victim)
	case OnlyChallengeable:
		if ph.Kind == Tax {
			g.withdraw(WithdrawTax, ph.Actor)
			g.endTurn()
			return
		}
		g.beginExchange(ph.Actor)
	case OnlyBlockable:
		g.withdraw(WithdrawForeignAid, ph.Actor)
		g.endTurn()
	case Reactable:
		if ph.Kind == Steal {
			g.steal(ph.Actor, ph.Victim)
			g.endTurn()
			return
		}
		g.spend(DepositAssassinate, ph.Actor)
		g.loseInfluence(ph.Victim)
	case Blocked:
		// The blocked action is annulled.  An assassin pays on
		// declaration, landed or not.
		if ph.Kind == Assassinate {
			g.spend(DepositAssassinate, ph.Actor)
		}
		g.endTurn()
	case Challenged:
		g.resolveChallenge(ph)
	default:
		panic(fmt.Sprintf("Advance is illegal in %T", g.phase))
	}
}

// ChooseVictim resolves a ChooseVictimCard phase with the victim's
// chosen card.
func (g *Game) ChooseVictim(choice Card) {
	ph, ok := g.phase.(ChooseVictimCard)
	if !ok {
		panic(fmt.Sprintf("ChooseVictim is illegal in %T", g.phase))
	}
	if choice != ph.Choices[0] && choice != ph.Choices[1] {
		panic(fmt.Sprintf("Card %s was not offered", choice))
	}

	hand := g.players.HandFor(ph.Victim)
	g.players.SetHand(ph.Victim, hand.Reveal(choice))
	g.endTurn()
}

// ChooseOne resolves a one-card exchange: the chosen card stays, the
// other two return to the deck.
func (g *Game) ChooseOne(choice Card) {
	ph, ok := g.phase.(ChooseOneFromThree)
	if !ok {
		panic(fmt.Sprintf("ChooseOne is illegal in %T", g.phase))
	}
	index := -1
	for i, c := range ph.Choices {
		if c == choice {
			index = i
			break
		}
	}
	if index < 0 {
		panic(fmt.Sprintf("Card %s was not offered", choice))
	}

	hand := g.players.HandFor(ph.Actor)
	last, ok := hand.Last()
	if !ok {
		panic("Exchange actor must be on their last card")
	}
	g.players.SetHand(ph.Actor, hand.replace(last, choice))

	var rest []Card
	for i, c := range ph.Choices {
		if i != index {
			rest = append(rest, c)
		}
	}
	g.deck.Return(rest...)
	g.endTurn()
}

// ChooseTwo resolves a two-card exchange.  The chosen pair must match
// two distinct positions of the presented four.
func (g *Game) ChooseTwo(c1, c2 Card) {
	ph, ok := g.phase.(ChooseTwoFromFour)
	if !ok {
		panic(fmt.Sprintf("ChooseTwo is illegal in %T", g.phase))
	}
	indices, ok := MatchToIndices([2]Card{c1, c2}, ph.Choices[:])
	if !ok {
		panic(fmt.Sprintf("Cards %s, %s were not offered", c1, c2))
	}

	g.players.SetHand(ph.Actor, FullHand(c1, c2))

	var rest []Card
	for i, c := range ph.Choices {
		if i != indices[0] && i != indices[1] {
			rest = append(rest, c)
		}
	}
	g.deck.Return(rest...)
	g.endTurn()
}

// Summary names the winner.  Legal in End only.
func (g *Game) Summary() Summary {
	if _, ok := g.phase.(End); !ok {
		panic(fmt.Sprintf("Summary is illegal in %T", g.phase))
	}
	alive := g.players.Alive()
	if len(alive) != 1 {
		panic(fmt.Sprintf("Game ended with %d seats alive", len(alive)))
	}
	return Summary{Winner: alive[0]}
}

func challengeClaim(ph Challenged) Card {
	return Challenge{Kind: ph.Kind, StealClaim: ph.StealClaim}.Claim()
}

// resolveChallenge decides a challenge and applies its fallout.  A
// defender who proves the claim shuffles the claimed card back and
// draws a replacement; effects that need no further choices from the
// defender still land (tax pays out, a proven assassination block
// still costs the assassin).  Either way the loser gives up
// influence.
func (g *Game) resolveChallenge(ph Challenged) {
	claim := challengeClaim(ph)
	loser := g.players.ChallengeLoser(ph.Actor, ph.Challenger, claim)

	if loser == ph.Challenger {
		g.replaceCard(ph.Actor, claim)
		switch ph.Kind {
		case ClaimTax:
			g.withdraw(WithdrawTax, ph.Actor)
		case ClaimBlockAssassination:
			g.spend(DepositAssassinate, ph.OrigActor)
		}
	}
	g.loseInfluence(loser)
}

// replaceCard returns the proven claim to the deck and draws the
// defender a fresh card, keeping the deck size and the card multiset
// intact.
func (g *Game) replaceCard(id PlayerId, claim Card) {
	g.deck.Return(claim)
	hand := g.players.HandFor(id)
	g.players.SetHand(id, hand.replace(claim, g.deck.Draw()))
}

// loseInfluence makes VICTIM give up a card: their choice when they
// hold two, elimination when they are on their last.
func (g *Game) loseInfluence(victim PlayerId) {
	hand := g.players.HandFor(victim)
	if hand.Full() {
		alive := hand.Alive()
		g.phase = ChooseVictimCard{Victim: victim, Choices: [2]Card{alive[0], alive[1]}}
		return
	}
	g.kill(victim)
}

// kill eliminates VICTIM and either ends the game or the turn.  When
// the victim was the current actor, removing them already hands the
// turn to the next alive seat; advancing again would skip a player.
func (g *Game) kill(victim PlayerId) {
	wasCurrent := g.players.Current() == victim
	coins := g.players.Kill(victim)
	g.coins.ReturnCoins(coins)

	if g.players.GameOver() {
		g.phase = End{}
		return
	}
	if wasCurrent {
		g.phase = Wait{Actions: g.players.GenerateActions(g.players.Current())}
		return
	}
	g.endTurn()
}

func (g *Game) endTurn() {
	g.players.EndTurn()
	g.phase = Wait{Actions: g.players.GenerateActions(g.players.Current())}
}

// beginExchange draws two cards and presents the actor their
// selection.
func (g *Game) beginExchange(actor PlayerId) {
	drawn := g.deck.DrawTwo()
	hand := g.players.HandFor(actor)
	if hand.Full() {
		g.phase = ChooseTwoFromFour{Actor: actor,
			Choices: [4]Card{drawn[0], drawn[1], hand.Cards[0], hand.Cards[1]}}
		return
	}
	last, _ := hand.Last()
	g.phase = ChooseOneFromThree{Actor: actor,
		Choices: [3]Card{drawn[0], drawn[1], last}}
}

func stealAmount(victimCoins uint8) uint8 {
	if victimCoins < 2 {
		return victimCoins
	}
	return 2
}

// steal moves up to two coins from victim to thief.
func (g *Game) steal(thief, victim PlayerId) {
	amount := stealAmount(g.players.Coins(victim))
	g.players.SetCoins(victim, g.players.Coins(victim)-amount)
	g.players.SetCoins(thief, g.players.Coins(thief)+amount)
}

func (g *Game) withdraw(w Withdrawal, actor PlayerId) {
	coins, err := g.coins.Withdraw(w, g.players.Coins(actor))
	if err != nil {
		panic(err)
	}
	g.players.SetCoins(actor, coins)
}

func (g *Game) spend(d Deposit, actor PlayerId) {
	coins, err := g.coins.Spend(d, g.players.Coins(actor))
	if err != nil {
		panic(err)
	}
	g.players.SetCoins(actor, coins)
}
