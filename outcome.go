// Observable round effects and game snapshots
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

// An OutcomeKind names a round effect visible to every player.
type OutcomeKind uint8

const (
	GainCoins OutcomeKind = iota + 1
	LoseCoins
	LosesInfluence
	ExchangesCards
	LoseTurn
)

func (k OutcomeKind) String() string {
	switch k {
	case GainCoins:
		return "GainCoins"
	case LoseCoins:
		return "LoseCoins"
	case LosesInfluence:
		return "LosesInfluence"
	case ExchangesCards:
		return "ExchangesCards"
	case LoseTurn:
		return "LoseTurn"
	default:
		panic(fmt.Sprintf("Illegal outcome kind: %d", uint8(k)))
	}
}

func (k OutcomeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *OutcomeKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, v := range [...]OutcomeKind{GainCoins, LoseCoins, LosesInfluence, ExchangesCards, LoseTurn} {
		if v.String() == name {
			*k = v
			return nil
		}
	}
	return fmt.Errorf("unknown outcome kind %q", name)
}

// An Outcome is broadcast to all players after each resolved
// reaction.  Actor and Amount accompany the coin outcomes, Victim the
// influence ones.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Actor  PlayerId    `json:"actor,omitempty"`
	Victim PlayerId    `json:"victim,omitempty"`
	Amount uint8       `json:"amount,omitempty"`
}

// A Summary names the winner of a finished game.
type Summary struct {
	Winner PlayerId `json:"winner"`
}

// A PlayerView is one seat as another player sees it.  Hand is only
// set in the recipient's own view; everyone else sees revealed cards
// only.
type PlayerView struct {
	Name          string `json:"name"`
	Coins         uint8  `json:"coins"`
	RevealedCards []Card `json:"revealed_cards,omitempty"`
	Hand          *Hand  `json:"hand,omitempty"`
}

// Info is the public snapshot delivered to each seat before every
// turn.
type Info struct {
	PlayerViews    map[PlayerId]PlayerView `json:"player_views"`
	CurrentPlayer  PlayerId                `json:"current_player"`
	CoinsRemaining uint8                   `json:"coins_remaining"`
}
