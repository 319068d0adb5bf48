// The per-game coordinator
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

// One coordinator goroutine runs per live game.  It owns the engine
// and every seat's channel bundle, prompts the seats the current
// phase concerns, races their responses against a shared deadline and
// broadcasts each resolved effect.  All channels are single-slot;
// every send and receive is guarded by the game's context so that
// dispatcher-side cancellation is promptly observable.

package game

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/slog"

	coup "go-coup"
)

// DefaultReactionWindow bounds how long seats may take to block,
// challenge or pass.
const DefaultReactionWindow = 10 * time.Second

// A PlayerCommunicationError ends a game with no winner: a seat's
// channel could no longer be served.
type PlayerCommunicationError struct {
	Seat coup.PlayerId
	Err  error
}

func (e *PlayerCommunicationError) Error() string {
	return fmt.Sprintf("cannot communicate with seat %s: %s", e.Seat, e.Err)
}

func (e *PlayerCommunicationError) Unwrap() error {
	return e.Err
}

// Options tune one game's coordinator.
type Options struct {
	// ReactionWindow overrides DefaultReactionWindow.
	ReactionWindow time.Duration
	Log            slog.Logger
}

type coordinator struct {
	ctx    context.Context
	game   *coup.Game
	seats  map[coup.PlayerId]*SeatChannels
	bc     *Broadcaster
	window time.Duration
	log    slog.Logger
}

// Play drives one game to its end.  It returns the summary on a
// regular win and a PlayerCommunicationError when the context is
// cancelled mid-game.
func Play(ctx context.Context, g *coup.Game, seats map[coup.PlayerId]*SeatChannels, bc *Broadcaster, opt Options) (coup.Summary, error) {
	c := &coordinator{
		ctx:    ctx,
		game:   g,
		seats:  seats,
		bc:     bc,
		window: opt.ReactionWindow,
		log:    opt.Log,
	}
	if c.window <= 0 {
		c.window = DefaultReactionWindow
	}
	if c.log == nil {
		c.log = slog.Disabled
	}
	return c.run()
}

func (c *coordinator) run() (coup.Summary, error) {
	for {
		switch ph := c.game.Phase().(type) {
		case coup.Wait:
			if err := c.wait(ph); err != nil {
				return coup.Summary{}, err
			}
		case coup.Safe:
			c.broadcastOutcome()
			c.game.Advance()
		case coup.OnlyChallengeable:
			if err := c.challengeWindow(ph.Actor, ph.Challenges); err != nil {
				return coup.Summary{}, err
			}
		case coup.OnlyBlockable:
			if err := c.blockWindow(ph); err != nil {
				return coup.Summary{}, err
			}
		case coup.Reactable:
			if err := c.reactionWindow(ph); err != nil {
				return coup.Summary{}, err
			}
		case coup.Blocked:
			// A block opens a fresh window for challenging the
			// blocker's claim.
			if err := c.challengeWindow(ph.Blocker, ph.Challenges); err != nil {
				return coup.Summary{}, err
			}
		case coup.Challenged:
			c.broadcastOutcome()
			c.game.Advance()
		case coup.ChooseVictimCard:
			if err := c.chooseVictim(ph); err != nil {
				return coup.Summary{}, err
			}
		case coup.ChooseOneFromThree:
			if err := c.chooseOne(ph); err != nil {
				return coup.Summary{}, err
			}
		case coup.ChooseTwoFromFour:
			if err := c.chooseTwo(ph); err != nil {
				return coup.Summary{}, err
			}
		case coup.End:
			summary := c.game.Summary()
			c.log.Debugf("Game finished, winner: %s", summary.Winner)
			c.bc.Send(Broadcast{End: &summary})
			return summary, nil
		default:
			panic(fmt.Sprintf("Illegal phase: %T", ph))
		}
	}
}

func (c *coordinator) broadcastOutcome() {
	outcome := c.game.Outcome()
	c.log.Tracef("Broadcasting outcome %+v", outcome)
	c.bc.Send(Broadcast{Outcome: &outcome})
}

// wait delivers each seat its view of the new round, prompts the
// current seat for an action and applies it.
func (c *coordinator) wait(ph coup.Wait) error {
	for id, sc := range c.seats {
		if err := send(c.ctx, sc.Info, c.game.InfoFor(id), id); err != nil {
			return err
		}
	}

	actor := ph.Actions.Actor
	prompt := Prompt{Kind: PromptAction, Actions: ph.Actions.All()}
	if err := send(c.ctx, c.seats[actor].Prompt, prompt, actor); err != nil {
		return err
	}

	action, err := recv(c.ctx, c.seats[actor].Action, actor)
	if err != nil {
		return err
	}
	c.log.Debugf("Seat %s plays %s", actor, action.Kind)
	c.game.Play(action)
	return nil
}

// challengeWindow prompts every seat in CHALLENGES and races their
// challenge against a shared deadline.
func (c *coordinator) challengeWindow(actor coup.PlayerId, challenges coup.PossibleChallenges) error {
	deadline := time.Now().Add(c.window)

	var rs []reactor
	for id := range challenges {
		sc := c.seats[id]
		drainReactions(sc)
		rs = append(rs, reactor{seat: id, challenge: sc.Challenge, pass: sc.Pass})
	}
	for id, ch := range challenges {
		prompt := Prompt{Kind: PromptChallenge, Challenge: ch, Deadline: deadline}
		if err := send(c.ctx, c.seats[id].Prompt, prompt, id); err != nil {
			return err
		}
	}

	res, err := c.race(rs, deadline)
	if err != nil {
		return err
	}
	if res.challenge != nil {
		c.log.Debugf("Seat %s challenges %s", res.challenge.Challenger, actor)
		c.game.RaiseChallenge(*res.challenge)
		return nil
	}
	c.broadcastOutcome()
	c.game.Advance()
	return nil
}

// blockWindow races a foreign aid declaration against Duke blocks.
func (c *coordinator) blockWindow(ph coup.OnlyBlockable) error {
	deadline := time.Now().Add(c.window)

	var rs []reactor
	for id := range ph.Blocks {
		sc := c.seats[id]
		drainReactions(sc)
		rs = append(rs, reactor{seat: id, block: sc.Block, pass: sc.Pass})
	}
	for id, b := range ph.Blocks {
		prompt := Prompt{Kind: PromptBlock, Blocks: coup.Blocks{b}, Deadline: deadline}
		if err := send(c.ctx, c.seats[id].Prompt, prompt, id); err != nil {
			return err
		}
	}

	res, err := c.race(rs, deadline)
	if err != nil {
		return err
	}
	if res.block != nil {
		c.log.Debugf("Seat %s blocks foreign aid", res.block.Blocker)
		c.game.RaiseBlock(*res.block)
		return nil
	}
	c.broadcastOutcome()
	c.game.Advance()
	return nil
}

// reactionWindow races a Steal or Assassinate against the victim's
// block and everyone's challenges.
func (c *coordinator) reactionWindow(ph coup.Reactable) error {
	deadline := time.Now().Add(c.window)
	reactions := ph.Reactions.All()

	var rs []reactor
	for id := range reactions {
		sc := c.seats[id]
		drainReactions(sc)
		r := reactor{seat: id, challenge: sc.Challenge, pass: sc.Pass}
		if id == ph.Reactions.Blocks.Blocker() {
			r.block = sc.Block
		}
		rs = append(rs, r)
	}
	for id, offered := range reactions {
		prompt := Prompt{Kind: PromptReaction, Reactions: offered, Deadline: deadline}
		if err := send(c.ctx, c.seats[id].Prompt, prompt, id); err != nil {
			return err
		}
	}

	res, err := c.race(rs, deadline)
	if err != nil {
		return err
	}
	switch {
	case res.challenge != nil:
		c.log.Debugf("Seat %s challenges %s", res.challenge.Challenger, ph.Actor)
		c.game.RaiseChallenge(*res.challenge)
	case res.block != nil:
		c.log.Debugf("Seat %s blocks %s", res.block.Blocker, ph.Kind)
		c.game.RaiseBlock(*res.block)
	default:
		c.broadcastOutcome()
		c.game.Advance()
	}
	return nil
}

func (c *coordinator) chooseVictim(ph coup.ChooseVictimCard) error {
	sc := c.seats[ph.Victim]
	prompt := Prompt{Kind: PromptVictim, Cards: ph.Choices[:]}
	if err := send(c.ctx, sc.Prompt, prompt, ph.Victim); err != nil {
		return err
	}
	card, err := recv(c.ctx, sc.VictimCard, ph.Victim)
	if err != nil {
		return err
	}
	c.game.ChooseVictim(card)
	return nil
}

func (c *coordinator) chooseOne(ph coup.ChooseOneFromThree) error {
	sc := c.seats[ph.Actor]
	prompt := Prompt{Kind: PromptOneFromThree, Cards: ph.Choices[:]}
	if err := send(c.ctx, sc.Prompt, prompt, ph.Actor); err != nil {
		return err
	}
	card, err := recv(c.ctx, sc.ChooseOne, ph.Actor)
	if err != nil {
		return err
	}
	c.game.ChooseOne(card)
	return nil
}

func (c *coordinator) chooseTwo(ph coup.ChooseTwoFromFour) error {
	sc := c.seats[ph.Actor]
	prompt := Prompt{Kind: PromptTwoFromFour, Cards: ph.Choices[:]}
	if err := send(c.ctx, sc.Prompt, prompt, ph.Actor); err != nil {
		return err
	}
	pair, err := recv(c.ctx, sc.ChooseTwo, ph.Actor)
	if err != nil {
		return err
	}
	c.game.ChooseTwo(pair[0], pair[1])
	return nil
}

// A reactor is one seat's racing receivers within a window.  Nil
// channels never fire.
type reactor struct {
	seat      coup.PlayerId
	challenge <-chan coup.Challenge
	block     <-chan coup.Block
	pass      <-chan Pass
}

// An rsvp is one seat's answer; both pointers nil means pass.
type rsvp struct {
	seat      coup.PlayerId
	challenge *coup.Challenge
	block     *coup.Block
}

// race waits for the first non-pass response across RS, a unanimous
// pass, or the deadline, whichever comes first.  Each seat's
// receivers are funneled through one goroutine into a single queue,
// so the winner is decided by arrival order at the coordinator.  At
// most one non-pass response is consumed; whatever arrives after the
// window stays in its single-slot channel and is drained at the next
// window.
func (c *coordinator) race(rs []reactor, deadline time.Time) (rsvp, error) {
	merged := make(chan rsvp)
	done := make(chan struct{})
	defer close(done)

	for _, r := range rs {
		go func(r reactor) {
			v := rsvp{seat: r.seat}
			select {
			case ch := <-r.challenge:
				v.challenge = &ch
			case b := <-r.block:
				v.block = &b
			case <-r.pass:
			case <-done:
				return
			}
			select {
			case merged <- v:
			case <-done:
			}
		}(r)
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	passes := 0
	for {
		select {
		case <-c.ctx.Done():
			return rsvp{}, &PlayerCommunicationError{Err: c.ctx.Err()}
		case <-timer.C:
			// The deadline is a collective pass.
			return rsvp{}, nil
		case v := <-merged:
			if v.challenge == nil && v.block == nil {
				passes++
				if passes == len(rs) {
					return rsvp{}, nil
				}
				continue
			}
			return v, nil
		}
	}
}

// drainReactions clears responses left over from a previous window.
func drainReactions(sc *SeatChannels) {
	for {
		select {
		case <-sc.Challenge:
		case <-sc.Block:
		case <-sc.Pass:
		default:
			return
		}
	}
}

func send[T any](ctx context.Context, ch chan<- T, v T, seat coup.PlayerId) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return &PlayerCommunicationError{Seat: seat, Err: ctx.Err()}
	}
}

func recv[T any](ctx context.Context, ch <-chan T, seat coup.PlayerId) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, &PlayerCommunicationError{Seat: seat, Err: ctx.Err()}
	}
}
