// Per-game channel plumbing
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

package game

import (
	"sync"
	"time"

	coup "go-coup"
)

// A Pass is an explicit or synthetic decline to react within a
// reaction window.
type Pass struct{}

// A PromptKind names what a prompt asks the seat to decide.
type PromptKind uint8

const (
	PromptAction PromptKind = iota + 1
	PromptChallenge
	PromptBlock
	PromptReaction
	PromptVictim
	PromptOneFromThree
	PromptTwoFromFour
)

// A Prompt asks one seat for a decision.  Exactly the fields for its
// kind are set.  Deadline is the wall-clock end of the reaction
// window for the reaction prompts; clients may render a countdown,
// but the server's own deadline is authoritative.
type Prompt struct {
	Kind      PromptKind
	Actions   []coup.Action
	Challenge coup.Challenge
	Blocks    coup.Blocks
	Reactions []coup.Reaction
	Cards     []coup.Card
	Deadline  time.Time
}

// A Broadcast is delivered to every seat of a game.  Exactly one
// field is set.
type Broadcast struct {
	Outcome   *coup.Outcome
	End       *coup.Summary
	Cancelled bool
}

// A Broadcaster fans one game's broadcasts out to every subscribed
// session.  Sending never blocks; a receiver that has fallen a full
// buffer behind loses its oldest message to make room for the new
// one, like a lagging broadcast receiver would.
type Broadcaster struct {
	mu   sync.Mutex
	subs []chan Broadcast
}

const broadcastBuffer = 16

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers a new receiver.
func (b *Broadcaster) Subscribe() <-chan Broadcast {
	ch := make(chan Broadcast, broadcastBuffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Send delivers M to every subscriber.
func (b *Broadcaster) Send(m Broadcast) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub <- m:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- m:
			default:
			}
		}
	}
}

// ClientChannels is the session's half of a seat: single-slot senders
// into the coordinator, one per response type.  One prompt, one
// response.
type ClientChannels struct {
	Action     chan<- coup.Action
	Challenge  chan<- coup.Challenge
	Block      chan<- coup.Block
	VictimCard chan<- coup.Card
	ChooseOne  chan<- coup.Card
	ChooseTwo  chan<- [2]coup.Card
	Pass       chan<- Pass
}

// SeatChannels is the coordinator's half of a seat.
type SeatChannels struct {
	Prompt chan<- Prompt
	Info   chan<- coup.Info

	Action     <-chan coup.Action
	Challenge  <-chan coup.Challenge
	Block      <-chan coup.Block
	VictimCard <-chan coup.Card
	ChooseOne  <-chan coup.Card
	ChooseTwo  <-chan [2]coup.Card
	Pass       <-chan Pass
}

// PlayerGameInfo is everything a session needs to take part in a
// game: its seat, its channel bundle, and the game's broadcast feed.
// Done is closed when the game is cancelled or torn down.
type PlayerGameInfo struct {
	Id        coup.PlayerId
	Done      <-chan struct{}
	Broadcast <-chan Broadcast
	Prompts   <-chan Prompt
	Info      <-chan coup.Info
	Send      ClientChannels
}

// GenerateChannels wires COUNT seats to a coordinator: one bundle per
// seat, every channel single-slot.
func GenerateChannels(count int, bc *Broadcaster, done <-chan struct{}) ([]PlayerGameInfo, map[coup.PlayerId]*SeatChannels) {
	players := make([]PlayerGameInfo, 0, count)
	seats := make(map[coup.PlayerId]*SeatChannels, count)

	for i := 0; i < count; i++ {
		id := coup.PlayerId(i + 1)
		var (
			prompt     = make(chan Prompt, 1)
			info       = make(chan coup.Info, 1)
			action     = make(chan coup.Action, 1)
			challenge  = make(chan coup.Challenge, 1)
			block      = make(chan coup.Block, 1)
			victimCard = make(chan coup.Card, 1)
			chooseOne  = make(chan coup.Card, 1)
			chooseTwo  = make(chan [2]coup.Card, 1)
			pass       = make(chan Pass, 1)
		)

		players = append(players, PlayerGameInfo{
			Id:        id,
			Done:      done,
			Broadcast: bc.Subscribe(),
			Prompts:   prompt,
			Info:      info,
			Send: ClientChannels{
				Action:     action,
				Challenge:  challenge,
				Block:      block,
				VictimCard: victimCard,
				ChooseOne:  chooseOne,
				ChooseTwo:  chooseTwo,
				Pass:       pass,
			},
		})
		seats[id] = &SeatChannels{
			Prompt:     prompt,
			Info:       info,
			Action:     action,
			Challenge:  challenge,
			Block:      block,
			VictimCard: victimCard,
			ChooseOne:  chooseOne,
			ChooseTwo:  chooseTwo,
			Pass:       pass,
		}
	}
	return players, seats
}
