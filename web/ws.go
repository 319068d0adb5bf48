// Websocket interface
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

package web

import (
	"fmt"
	"net/http"

	"github.com/decred/slog"
	ws "github.com/gorilla/websocket"

	"go-coup/proto"
)

var wsUpgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The index page and the game protocol carry no credentials.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsTransport adapts a websocket connection to the session's
// transport.
type wsTransport struct {
	conn *ws.Conn
}

// ReadMessage returns the next text frame.
func (t *wsTransport) ReadMessage() ([]byte, error) {
	kind, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if kind != ws.TextMessage {
		return nil, fmt.Errorf("wrong message type: %d", kind)
	}
	return data, nil
}

// WriteMessage sends one text frame.
func (t *wsTransport) WriteMessage(data []byte) error {
	return t.conn.WriteMessage(ws.TextMessage, data)
}

// Close performs a clean websocket shutdown.
func (t *wsTransport) Close() error {
	t.conn.WriteMessage(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	return t.conn.Close()
}

// upgrader turns an HTTP request into a client session.
func upgrader(disp proto.Dispatcher, log slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debugf("Unable to upgrade connection: %s", err)
			return
		}
		log.Infof("New connection from %s", r.RemoteAddr)
		go proto.Handle(&wsTransport{conn: conn}, r.RemoteAddr, disp, log)
	}
}
