// Wire protocol
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

// Every frame on the wire is one JSON object with a "type"
// discriminator plus the payload fields of that variant.

package proto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	coup "go-coup"
)

// Server to client message types.
const (
	MsgGameId              = "game_id"
	MsgPlayerId            = "player_id"
	MsgInfo                = "info"
	MsgEnd                 = "end"
	MsgGameCancelled       = "game_cancelled"
	MsgOutcome             = "outcome"
	MsgActionChoices       = "action_choices"
	MsgChallengeChoice     = "challenge_choice"
	MsgBlockChoices        = "block_choices"
	MsgReactionChoices     = "reaction_choices"
	MsgVictimChoices       = "victim_choices"
	MsgOneFromThreeChoices = "one_from_three_choices"
	MsgTwoFromFourChoices  = "two_from_four_choices"
)

// ClientMessage is a server-to-client frame.
type ClientMessage struct {
	Type      string          `json:"type"`
	GameId    *uuid.UUID      `json:"game_id,omitempty"`
	PlayerId  coup.PlayerId   `json:"player_id,omitempty"`
	Info      *coup.Info      `json:"info,omitempty"`
	Summary   *coup.Summary   `json:"summary,omitempty"`
	Outcome   *coup.Outcome   `json:"outcome,omitempty"`
	Actions   []coup.Action   `json:"actions,omitempty"`
	Challenge *coup.Challenge `json:"challenge,omitempty"`
	Blocks    coup.Blocks     `json:"blocks,omitempty"`
	Reactions []coup.Reaction `json:"reactions,omitempty"`
	Cards     []coup.Card     `json:"cards,omitempty"`
	Deadline  *time.Time      `json:"deadline,omitempty"`
}

// Client to server response types.
const (
	RespPass         = "pass"
	RespBlock        = "block"
	RespChallenge    = "challenge"
	RespAct          = "act"
	RespReact        = "react"
	RespChooseVictim = "choose_victim"
	RespExchangeOne  = "exchange_one"
	RespExchangeTwo  = "exchange_two"
)

// ClientResponse is a client-to-server frame.
type ClientResponse struct {
	Type     string         `json:"type"`
	Card     coup.Card      `json:"card,omitempty"`
	Cards    []coup.Card    `json:"cards,omitempty"`
	Action   *coup.Action   `json:"action,omitempty"`
	Reaction *coup.Reaction `json:"reaction,omitempty"`
}

// Client error types.
const (
	ErrNotReady        = "not_ready"
	ErrInvalidResponse = "invalid_response"
)

// ClientError is sent to the client on protocol violations; the
// session then keeps going.
type ClientError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// NotReady is the reply to a message that arrived before the session
// was ready for it.
func NotReady() ClientError {
	return ClientError{
		Type:  ErrNotReady,
		Error: "received message before it was expected",
	}
}

// InvalidResponse is the reply to a frame that did not parse or chose
// a value outside the offered set.
func InvalidResponse() ClientError {
	return ClientError{
		Type:  ErrInvalidResponse,
		Error: "response is not in the correct format, or does not contain valid values",
	}
}

func marshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("Unencodable message: %s", err))
	}
	return data
}

func parseResponse(data []byte) (ClientResponse, error) {
	var resp ClientResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return ClientResponse{}, err
	}
	switch resp.Type {
	case RespPass, RespBlock, RespChallenge, RespAct, RespReact,
		RespChooseVictim, RespExchangeOne, RespExchangeTwo:
		return resp, nil
	default:
		return ClientResponse{}, fmt.Errorf("unknown response type %q", resp.Type)
	}
}
