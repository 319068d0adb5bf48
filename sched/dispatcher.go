// Lobby dispatch
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

// The dispatcher is the one process-wide singleton.  It owns the
// lobby map privately; sessions talk to it over the register and
// disconnect channels only.

package sched

import (
	"context"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	coup "go-coup"
	"go-coup/game"
	"go-coup/proto"
)

// A lobby is a pre-game bucket of pending seats that becomes a live
// game once enough players registered.
type lobby struct {
	id      uuid.UUID
	pending []chan game.PlayerGameInfo
	bc      *game.Broadcaster
	cancel  context.CancelFunc
	started bool
}

type disconnect struct {
	addr   string
	gameId uuid.UUID
}

// A Dispatcher assembles lobbies, spawns game coordinators and tears
// games down on disconnect.
type Dispatcher struct {
	register   chan proto.Registration
	disconnect chan disconnect

	threshold int
	window    time.Duration
	log       slog.Logger

	// owned by the Start goroutine
	lobbies  map[uuid.UUID]*lobby
	order    []uuid.UUID
	finished map[uuid.UUID]*lobby
}

// MakeDispatcher builds a dispatcher that starts a lobby's game once
// THRESHOLD players are waiting.
func MakeDispatcher(threshold int, window time.Duration, log slog.Logger) *Dispatcher {
	if threshold < coup.MinPlayers {
		threshold = coup.MinPlayers
	}
	if threshold > coup.MaxPlayers {
		threshold = coup.MaxPlayers
	}
	if log == nil {
		log = slog.Disabled
	}
	return &Dispatcher{
		register:   make(chan proto.Registration, 16),
		disconnect: make(chan disconnect, 16),
		threshold:  threshold,
		window:     window,
		log:        log,
		lobbies:    make(map[uuid.UUID]*lobby),
		finished:   make(map[uuid.UUID]*lobby),
	}
}

// Register seats a new session into a lobby.
func (d *Dispatcher) Register(r proto.Registration) {
	d.register <- r
}

// Disconnected reports that a session's transport closed mid-game.
func (d *Dispatcher) Disconnected(addr string, gameId uuid.UUID) {
	d.disconnect <- disconnect{addr: addr, gameId: gameId}
}

// Start runs the dispatcher until the context ends.
func (d *Dispatcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-d.register:
			d.assign(ctx, r)
		case dc := <-d.disconnect:
			d.cancelGame(dc)
		}
	}
}

// assign places a registration into the first lobby that has not
// started and still has room, creating one when none fits, and
// starts the game once the lobby is full enough.
func (d *Dispatcher) assign(ctx context.Context, r proto.Registration) {
	var l *lobby
	for _, id := range d.order {
		candidate := d.lobbies[id]
		if candidate != nil && !candidate.started && len(candidate.pending) < coup.MaxPlayers {
			l = candidate
			break
		}
	}
	if l == nil {
		l = &lobby{id: uuid.Must(uuid.NewV7()), bc: game.NewBroadcaster()}
		d.lobbies[l.id] = l
		d.order = append(d.order, l.id)
		d.log.Debugf("Created lobby %s", l.id)
	}

	r.GameId <- l.id
	l.pending = append(l.pending, r.Seat)
	d.log.Debugf("Lobby %s now has %d pending seats", l.id, len(l.pending))

	if len(l.pending) >= d.threshold {
		d.startGame(ctx, l)
	}
}

// startGame wires up the channels, spawns the coordinator and hands
// every pending session its seat.
func (d *Dispatcher) startGame(ctx context.Context, l *lobby) {
	count := len(l.pending)
	d.log.Infof("Starting game %s with %d players", l.id, count)

	gctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.started = true

	players, seats := game.GenerateChannels(count, l.bc, gctx.Done())
	g := coup.NewGame(count)

	id := l.id
	bc := l.bc
	go func() {
		summary, err := game.Play(gctx, g, seats, bc, game.Options{
			ReactionWindow: d.window,
			Log:            d.log,
		})
		if err != nil {
			d.log.Infof("Game %s ended without a winner: %s", id, err)
			return
		}
		d.log.Infof("Game %s won by seat %s", id, summary.Winner)
	}()

	for i, seat := range l.pending {
		seat <- players[i]
	}
	l.pending = nil
}

// cancelGame tears a lobby down exactly once; duplicate disconnects
// for the same game id are ignored.
func (d *Dispatcher) cancelGame(dc disconnect) {
	l, ok := d.lobbies[dc.gameId]
	if !ok {
		d.log.Debugf("Ignoring disconnect of %s for unknown game %s", dc.addr, dc.gameId)
		return
	}
	d.log.Infof("Player %s disconnected, cancelling game %s", dc.addr, dc.gameId)
	delete(d.lobbies, dc.gameId)

	l.bc.Send(game.Broadcast{Cancelled: true})
	if l.cancel != nil {
		l.cancel()
	}
	d.finished[dc.gameId] = l
}
