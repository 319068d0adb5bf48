// Actions, blocks, challenges and their generation
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
	"encoding/json"
	"fmt"
)

// An Act is the kind of move a player can declare on their turn.
type Act uint8

const (
	Income Act = iota + 1
	ForeignAid
	Tax
	Exchange
	Steal
	Assassinate
	Coup
)

func (a Act) String() string {
	switch a {
	case Income:
		return "Income"
	case ForeignAid:
		return "ForeignAid"
	case Tax:
		return "Tax"
	case Exchange:
		return "Exchange"
	case Steal:
		return "Steal"
	case Assassinate:
		return "Assassinate"
	case Coup:
		return "Coup"
	default:
		panic(fmt.Sprintf("Illegal act: %d", uint8(a)))
	}
}

func (a Act) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Act) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, k := range [...]Act{Income, ForeignAid, Tax, Exchange, Steal, Assassinate, Coup} {
		if k.String() == name {
			*a = k
			return nil
		}
	}
	return fmt.Errorf("unknown act %q", name)
}

// An Action is a declared move.  Victim is only set for Steal,
// Assassinate and Coup.
type Action struct {
	Actor  PlayerId `json:"actor"`
	Kind   Act      `json:"kind"`
	Victim PlayerId `json:"victim,omitempty"`
}

// Claim returns the card an action implicitly claims.  Income,
// ForeignAid and Coup make no claim.
func (a Action) Claim() (Card, bool) {
	switch a.Kind {
	case Tax:
		return Duke, true
	case Exchange:
		return Ambassador, true
	case Steal:
		return Captain, true
	case Assassinate:
		return Assassin, true
	default:
		return 0, false
	}
}

// A Block is a declared interception of another player's action.
// Claim is the card the blocker claims: Duke against ForeignAid,
// Contessa against Assassinate, Ambassador or Captain against Steal.
type Block struct {
	Actor   PlayerId `json:"actor"`
	Blocker PlayerId `json:"blocker"`
	Kind    Act      `json:"kind"`
	Victim  PlayerId `json:"victim,omitempty"`
	Claim   Card     `json:"claim"`
}

// Blocks is the set of blocks offered to one seat within a reaction
// window; two entries for Steal (the blocker picks their claim), one
// otherwise.
type Blocks []Block

// Blocker is the seat the blocks are offered to.
func (bs Blocks) Blocker() PlayerId {
	if len(bs) == 0 {
		panic("No blocks")
	}
	return bs[0].Blocker
}

// ByClaim finds the offered block claiming CARD.
func (bs Blocks) ByClaim(card Card) (Block, bool) {
	for _, b := range bs {
		if b.Claim == card {
			return b, true
		}
	}
	return Block{}, false
}

// A ClaimKind names the claim a challenge disputes: either an
// action's implicit claim or a block's declared one.
type ClaimKind uint8

const (
	ClaimTax ClaimKind = iota + 1
	ClaimExchange
	ClaimSteal
	ClaimAssassinate
	ClaimBlockForeignAid
	ClaimBlockAssassination
	ClaimBlockSteal
)

func (k ClaimKind) String() string {
	switch k {
	case ClaimTax:
		return "Tax"
	case ClaimExchange:
		return "Exchange"
	case ClaimSteal:
		return "Steal"
	case ClaimAssassinate:
		return "Assassinate"
	case ClaimBlockForeignAid:
		return "BlockForeignAid"
	case ClaimBlockAssassination:
		return "BlockAssassination"
	case ClaimBlockSteal:
		return "BlockSteal"
	default:
		panic(fmt.Sprintf("Illegal claim kind: %d", uint8(k)))
	}
}

func (k ClaimKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ClaimKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, v := range [...]ClaimKind{ClaimTax, ClaimExchange, ClaimSteal, ClaimAssassinate,
		ClaimBlockForeignAid, ClaimBlockAssassination, ClaimBlockSteal} {
		if v.String() == name {
			*k = v
			return nil
		}
	}
	return fmt.Errorf("unknown claim kind %q", name)
}

// A Challenge asserts that ACTOR does not hold the card their action
// or block claims.  For a challenged steal block, StealClaim records
// which of the two cards the blocker claimed.
type Challenge struct {
	Actor      PlayerId  `json:"actor"`
	Challenger PlayerId  `json:"challenger"`
	Kind       ClaimKind `json:"kind"`
	StealClaim Card      `json:"steal_claim,omitempty"`
}

// Claim is the disputed card.
func (c Challenge) Claim() Card {
	switch c.Kind {
	case ClaimTax, ClaimBlockForeignAid:
		return Duke
	case ClaimExchange:
		return Ambassador
	case ClaimSteal:
		return Captain
	case ClaimAssassinate:
		return Assassin
	case ClaimBlockAssassination:
		return Contessa
	case ClaimBlockSteal:
		return c.StealClaim
	default:
		panic(fmt.Sprintf("Illegal claim kind: %d", uint8(c.Kind)))
	}
}

// A Reaction is either a block or a challenge; exactly one field is
// set.
type Reaction struct {
	Challenge *Challenge `json:"challenge,omitempty"`
	Block     *Block     `json:"block,omitempty"`
}

// Reactor is the seat the reaction belongs to.
func (r Reaction) Reactor() PlayerId {
	switch {
	case r.Challenge != nil:
		return r.Challenge.Challenger
	case r.Block != nil:
		return r.Block.Blocker
	default:
		panic("Empty reaction")
	}
}

// PossibleActions are the legal actions for the current seat, grouped
// the way they are presented.
type PossibleActions struct {
	Actor          PlayerId
	Assassinations []Action
	Coups          []Action
	Steals         []Action
	Basic          []Action
}

// All flattens the groups.
func (pa PossibleActions) All() []Action {
	var all []Action
	all = append(all, pa.Assassinations...)
	all = append(all, pa.Coups...)
	all = append(all, pa.Steals...)
	all = append(all, pa.Basic...)
	return all
}

// Contains reports whether A is one of the generated actions.
func (pa PossibleActions) Contains(a Action) bool {
	for _, b := range pa.All() {
		if a == b {
			return true
		}
	}
	return false
}

// PossibleChallenges maps each seat that may challenge to the
// challenge it would raise.
type PossibleChallenges map[PlayerId]Challenge

// PossibleBlocks maps each seat that may block to the block it would
// declare.
type PossibleBlocks map[PlayerId]Block

// PossibleReactions is the reaction window of a Steal or Assassinate:
// the victim's block choices plus everyone's challenges.
type PossibleReactions struct {
	Blocks     Blocks
	Challenges PossibleChallenges
}

// All groups the reactions by the seat they are offered to.
func (pr PossibleReactions) All() map[PlayerId][]Reaction {
	all := make(map[PlayerId][]Reaction, len(pr.Challenges)+1)
	for _, b := range pr.Blocks {
		b := b
		all[b.Blocker] = append(all[b.Blocker], Reaction{Block: &b})
	}
	for _, c := range pr.Challenges {
		c := c
		all[c.Challenger] = append(all[c.Challenger], Reaction{Challenge: &c})
	}
	return all
}

// GenerateActions builds the legal actions for ACTOR.  A seat holding
// ten or more coins must coup; otherwise the basic actions are always
// offered, Steal against victims with coins, Assassinate from three
// coins and Coup from seven.
func (p *PlayerMap) GenerateActions(actor PlayerId) PossibleActions {
	pa := PossibleActions{Actor: actor}
	coins := p.Coins(actor)

	var others []PlayerId
	for _, id := range p.Alive() {
		if id != actor {
			others = append(others, id)
		}
	}

	if coins >= 10 {
		for _, victim := range others {
			pa.Coups = append(pa.Coups, Action{Actor: actor, Kind: Coup, Victim: victim})
		}
		return pa
	}

	pa.Basic = []Action{
		{Actor: actor, Kind: ForeignAid},
		{Actor: actor, Kind: Income},
		{Actor: actor, Kind: Tax},
		{Actor: actor, Kind: Exchange},
	}
	for _, victim := range others {
		if p.Coins(victim) >= 1 {
			pa.Steals = append(pa.Steals, Action{Actor: actor, Kind: Steal, Victim: victim})
		}
	}
	if coins >= uint8(DepositAssassinate) {
		for _, victim := range others {
			pa.Assassinations = append(pa.Assassinations,
				Action{Actor: actor, Kind: Assassinate, Victim: victim})
		}
	}
	if coins >= uint8(DepositCoup) {
		for _, victim := range others {
			pa.Coups = append(pa.Coups, Action{Actor: actor, Kind: Coup, Victim: victim})
		}
	}
	return pa
}

// GenerateChallenges builds the challenge each alive seat other than
// ACTOR may raise against the given claim.
func (p *PlayerMap) GenerateChallenges(actor PlayerId, kind ClaimKind, stealClaim Card) PossibleChallenges {
	pc := make(PossibleChallenges)
	for _, id := range p.Alive() {
		if id == actor {
			continue
		}
		pc[id] = Challenge{Actor: actor, Challenger: id, Kind: kind, StealClaim: stealClaim}
	}
	return pc
}

// GenerateBlocks builds the Duke block each alive seat other than
// ACTOR may declare against foreign aid.
func (p *PlayerMap) GenerateBlocks(actor PlayerId) PossibleBlocks {
	pb := make(PossibleBlocks)
	for _, id := range p.Alive() {
		if id == actor {
			continue
		}
		pb[id] = Block{Actor: actor, Blocker: id, Kind: ForeignAid, Claim: Duke}
	}
	return pb
}

// GenerateReactions builds the reaction window against ACTOR's Steal
// or Assassinate: block choices for the victim, challenges for
// everyone else alive.
func (p *PlayerMap) GenerateReactions(actor PlayerId, kind Act, victim PlayerId) PossibleReactions {
	var (
		blocks Blocks
		claim  ClaimKind
	)
	switch kind {
	case Steal:
		blocks = Blocks{
			{Actor: actor, Blocker: victim, Kind: Steal, Victim: victim, Claim: Ambassador},
			{Actor: actor, Blocker: victim, Kind: Steal, Victim: victim, Claim: Captain},
		}
		claim = ClaimSteal
	case Assassinate:
		blocks = Blocks{
			{Actor: actor, Blocker: victim, Kind: Assassinate, Victim: victim, Claim: Contessa},
		}
		claim = ClaimAssassinate
	default:
		panic(fmt.Sprintf("Act %s has no reaction window", kind))
	}
	return PossibleReactions{
		Blocks:     blocks,
		Challenges: p.GenerateChallenges(actor, claim, 0),
	}
}
