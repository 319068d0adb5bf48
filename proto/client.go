// Client session management
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

// One session goroutine runs per connected player.  It owns the
// transport: everything the client sends is validated here against
// the prompt it answers, and only legal choices are relayed inward to
// the coordinator.  Everything else earns an error reply and another
// try.

package proto

import (
	"errors"
	"fmt"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	coup "go-coup"
	"go-coup/game"
)

// A Transport is one persistent bidirectional text-framed message
// channel, one frame per message.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// A Registration is what a new session hands the dispatcher: two
// one-shot reply channels, the game id first, the seat once the game
// starts.
type Registration struct {
	Seat   chan game.PlayerGameInfo
	GameId chan uuid.UUID
}

// A Dispatcher seats sessions into lobbies and hears about their
// deaths.
type Dispatcher interface {
	Register(Registration)
	Disconnected(addr string, gameId uuid.UUID)
}

var (
	errDisconnected = errors.New("client disconnected")
	errFinished     = errors.New("game finished")
)

type client struct {
	tr     Transport
	addr   string
	disp   Dispatcher
	log    slog.Logger
	reads  <-chan []byte
	gameId uuid.UUID
	pgi    game.PlayerGameInfo
}

// Handle runs one client session to completion.  It blocks until the
// game ends, is cancelled, or the client goes away.
func Handle(tr Transport, addr string, disp Dispatcher, log slog.Logger) {
	if log == nil {
		log = slog.Disabled
	}
	cli := &client{tr: tr, addr: addr, disp: disp, log: log}
	defer tr.Close()

	// Pump transport reads into a channel so they can be raced
	// against the game's channels; closed on transport failure.
	reads := make(chan []byte)
	go func() {
		defer close(reads)
		for {
			data, err := tr.ReadMessage()
			if err != nil {
				return
			}
			reads <- data
		}
	}()
	cli.reads = reads

	reg := Registration{
		Seat:   make(chan game.PlayerGameInfo, 1),
		GameId: make(chan uuid.UUID, 1),
	}
	disp.Register(reg)
	cli.gameId = <-reg.GameId
	log.Debugf("Client %s assigned to game %s", addr, cli.gameId)

	err := cli.handle(reg)
	switch {
	case err == nil:
		log.Debugf("Closing connection to %s", addr)
	case errors.Is(err, errDisconnected):
		log.Infof("Client %s disconnected, reporting to dispatcher", addr)
		disp.Disconnected(addr, cli.gameId)
	default:
		log.Errorf("Session for %s failed: %s", addr, err)
	}
}

func (c *client) handle(reg Registration) error {
	id := c.gameId
	if err := c.write(ClientMessage{Type: MsgGameId, GameId: &id}); err != nil {
		return err
	}

	// Until the lobby fills there is nothing the client may do;
	// premature messages get a NotReady reply.
	for {
		select {
		case pgi := <-reg.Seat:
			c.pgi = pgi
		case _, ok := <-c.reads:
			if !ok {
				return errDisconnected
			}
			if err := c.write(NotReady()); err != nil {
				return err
			}
			continue
		}
		break
	}

	c.log.Debugf("Client %s seated as player %s", c.addr, c.pgi.Id)
	if err := c.write(ClientMessage{Type: MsgPlayerId, PlayerId: c.pgi.Id}); err != nil {
		return err
	}

	err := c.loop()
	if errors.Is(err, errFinished) {
		return nil
	}
	return err
}

// loop multiplexes the coordinator's feeds against the transport.
func (c *client) loop() error {
	for {
		select {
		case m := <-c.pgi.Broadcast:
			done, err := c.relayBroadcast(m)
			if err != nil || done {
				return err
			}
		case info := <-c.pgi.Info:
			if err := c.write(ClientMessage{Type: MsgInfo, Info: &info}); err != nil {
				return err
			}
		case p := <-c.pgi.Prompts:
			if err := c.prompt(p); err != nil {
				return err
			}
		case _, ok := <-c.reads:
			if !ok {
				return errDisconnected
			}
			// No prompt is pending, so the message cannot mean
			// anything yet.
			if err := c.write(NotReady()); err != nil {
				return err
			}
		case <-c.pgi.Done:
			if err := c.write(ClientMessage{Type: MsgGameCancelled}); err != nil {
				return err
			}
			return nil
		}
	}
}

// relayBroadcast forwards a broadcast; done means the session is
// over.
func (c *client) relayBroadcast(m game.Broadcast) (bool, error) {
	switch {
	case m.Outcome != nil:
		return false, c.write(ClientMessage{Type: MsgOutcome, Outcome: m.Outcome})
	case m.End != nil:
		// End is the last message; afterwards the transport closes
		// cleanly.
		return true, c.write(ClientMessage{Type: MsgEnd, Summary: m.End})
	case m.Cancelled:
		if err := c.write(ClientMessage{Type: MsgGameCancelled}); err != nil {
			return true, err
		}
		return true, nil
	default:
		panic("Empty broadcast")
	}
}

// prompt asks the client for a decision and relays the first legal
// answer.  Reaction prompts are additionally bounded by the window
// deadline, after which a synthetic Pass is relayed, and abandoned
// early when a broadcast shows the window was resolved by someone
// else.
func (c *client) prompt(p game.Prompt) error {
	if err := c.write(promptMessage(p)); err != nil {
		return err
	}

	reacting := !p.Deadline.IsZero()
	var timeout <-chan time.Time
	if reacting {
		timer := time.NewTimer(time.Until(p.Deadline))
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-timeout:
			c.log.Tracef("Player %s timed out, passing", c.pgi.Id)
			return c.relay(p, pass())
		case m := <-c.pgi.Broadcast:
			done, err := c.relayBroadcast(m)
			if err != nil {
				return err
			}
			if done {
				return errFinished
			}
			if reacting {
				// An outcome mid-window means the race was won
				// elsewhere; the prompt is moot.
				return nil
			}
		case <-c.pgi.Done:
			if err := c.write(ClientMessage{Type: MsgGameCancelled}); err != nil {
				return err
			}
			return errFinished
		case data, ok := <-c.reads:
			if !ok {
				return errDisconnected
			}
			resp, err := parseResponse(data)
			if err != nil {
				if err := c.write(InvalidResponse()); err != nil {
					return err
				}
				continue
			}
			legal, err := c.relayResponse(p, resp)
			if err != nil {
				return err
			}
			if !legal {
				if err := c.write(InvalidResponse()); err != nil {
					return err
				}
				continue
			}
			return nil
		}
	}
}

// An answer is a validated response on its way to the coordinator.
type answer struct {
	pass      bool
	action    *coup.Action
	challenge *coup.Challenge
	block     *coup.Block
	card      *coup.Card
	pair      *[2]coup.Card
}

func pass() answer {
	return answer{pass: true}
}

// relayResponse validates RESP against the prompt's offered set and
// relays it.  It reports false for a syntactically fine response that
// chose something that was never offered.
func (c *client) relayResponse(p game.Prompt, resp ClientResponse) (bool, error) {
	switch p.Kind {
	case game.PromptAction:
		if resp.Type != RespAct || resp.Action == nil {
			return false, nil
		}
		for _, a := range p.Actions {
			if a == *resp.Action {
				return true, c.relay(p, answer{action: resp.Action})
			}
		}
		return false, nil

	case game.PromptChallenge:
		switch resp.Type {
		case RespPass:
			return true, c.relay(p, pass())
		case RespChallenge:
			ch := p.Challenge
			return true, c.relay(p, answer{challenge: &ch})
		}
		return false, nil

	case game.PromptBlock:
		switch resp.Type {
		case RespPass:
			return true, c.relay(p, pass())
		case RespBlock:
			if b, ok := p.Blocks.ByClaim(resp.Card); ok {
				return true, c.relay(p, answer{block: &b})
			}
		}
		return false, nil

	case game.PromptReaction:
		switch resp.Type {
		case RespPass:
			return true, c.relay(p, pass())
		case RespReact:
			if resp.Reaction == nil {
				return false, nil
			}
			for _, offered := range p.Reactions {
				if !sameReaction(offered, *resp.Reaction) {
					continue
				}
				if offered.Block != nil {
					return true, c.relay(p, answer{block: offered.Block})
				}
				return true, c.relay(p, answer{challenge: offered.Challenge})
			}
		}
		return false, nil

	case game.PromptVictim, game.PromptOneFromThree:
		want := RespChooseVictim
		if p.Kind == game.PromptOneFromThree {
			want = RespExchangeOne
		}
		if resp.Type != want {
			return false, nil
		}
		for _, card := range p.Cards {
			if card == resp.Card {
				card := card
				return true, c.relay(p, answer{card: &card})
			}
		}
		return false, nil

	case game.PromptTwoFromFour:
		if resp.Type != RespExchangeTwo || len(resp.Cards) != 2 {
			return false, nil
		}
		pair := [2]coup.Card{resp.Cards[0], resp.Cards[1]}
		if _, ok := coup.MatchToIndices(pair, p.Cards); !ok {
			return false, nil
		}
		return true, c.relay(p, answer{pair: &pair})

	default:
		panic(fmt.Sprintf("Illegal prompt kind: %d", p.Kind))
	}
}

// relay forwards a validated answer to the coordinator, giving up if
// the game goes away first.
func (c *client) relay(p game.Prompt, a answer) error {
	send := c.pgi.Send
	switch {
	case a.pass:
		return sendTo(c.pgi.Done, send.Pass, game.Pass{})
	case a.action != nil:
		return sendTo(c.pgi.Done, send.Action, *a.action)
	case a.challenge != nil:
		return sendTo(c.pgi.Done, send.Challenge, *a.challenge)
	case a.block != nil:
		return sendTo(c.pgi.Done, send.Block, *a.block)
	case a.pair != nil:
		return sendTo(c.pgi.Done, send.ChooseTwo, *a.pair)
	case a.card != nil:
		switch p.Kind {
		case game.PromptVictim:
			return sendTo(c.pgi.Done, send.VictimCard, *a.card)
		case game.PromptOneFromThree:
			return sendTo(c.pgi.Done, send.ChooseOne, *a.card)
		}
	}
	panic("Empty answer")
}

func sendTo[T any](done <-chan struct{}, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-done:
		return errFinished
	}
}

func sameReaction(a, b coup.Reaction) bool {
	switch {
	case a.Challenge != nil && b.Challenge != nil:
		return *a.Challenge == *b.Challenge
	case a.Block != nil && b.Block != nil:
		return *a.Block == *b.Block
	default:
		return false
	}
}

func promptMessage(p game.Prompt) ClientMessage {
	var deadline *time.Time
	if !p.Deadline.IsZero() {
		d := p.Deadline
		deadline = &d
	}
	switch p.Kind {
	case game.PromptAction:
		return ClientMessage{Type: MsgActionChoices, Actions: p.Actions}
	case game.PromptChallenge:
		ch := p.Challenge
		return ClientMessage{Type: MsgChallengeChoice, Challenge: &ch, Deadline: deadline}
	case game.PromptBlock:
		return ClientMessage{Type: MsgBlockChoices, Blocks: p.Blocks, Deadline: deadline}
	case game.PromptReaction:
		return ClientMessage{Type: MsgReactionChoices, Reactions: p.Reactions, Deadline: deadline}
	case game.PromptVictim:
		return ClientMessage{Type: MsgVictimChoices, Cards: p.Cards}
	case game.PromptOneFromThree:
		return ClientMessage{Type: MsgOneFromThreeChoices, Cards: p.Cards}
	case game.PromptTwoFromFour:
		return ClientMessage{Type: MsgTwoFromFourChoices, Cards: p.Cards}
	default:
		panic(fmt.Sprintf("Illegal prompt kind: %d", p.Kind))
	}
}

func (c *client) write(v any) error {
	data := marshal(v)
	c.log.Tracef("%s > %s", c.addr, data)
	if err := c.tr.WriteMessage(data); err != nil {
		return fmt.Errorf("%w: %s", errDisconnected, err)
	}
	return nil
}
