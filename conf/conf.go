// Configuration specification and management
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

package conf

import (
	"flag"
	"time"
)

// Internal representation
type conf struct {
	Debug  bool `toml:"debug"`
	Server struct {
		Addr string `toml:"addr"`
		Port uint   `toml:"port"`
	} `toml:"server"`
	Game struct {
		ReactionWindow uint `toml:"reaction_window"`
		StartThreshold uint `toml:"start_threshold"`
	} `toml:"game"`
}

// Public configuration
type Conf struct {
	Debug bool // Enable debug logging

	// Server configuration
	Addr string // Address to bind to
	Port uint   // Port to listen on

	// Game configuration
	ReactionWindow time.Duration // How long seats may take to react
	StartThreshold uint          // Players needed to start a lobby
}

// Configuration object used by default
var defaultConfig = Conf{
	Addr:           "0.0.0.0",
	Port:           3000,
	ReactionWindow: 10 * time.Second,
	StartThreshold: 2,
}

func init() {
	flag.StringVar(&defaultConfig.Addr, "addr", defaultConfig.Addr,
		"Address to bind the server to")
	flag.UintVar(&defaultConfig.Port, "port", defaultConfig.Port,
		"Port to use for HTTP and websocket connections")
	flag.BoolVar(&defaultConfig.Debug, "debug", defaultConfig.Debug,
		"Enable debug output")
}

func (c *Conf) repr() conf {
	var data conf
	data.Debug = c.Debug
	data.Server.Addr = c.Addr
	data.Server.Port = c.Port
	data.Game.ReactionWindow = uint(c.ReactionWindow / time.Millisecond)
	data.Game.StartThreshold = c.StartThreshold
	return data
}

func (data *conf) expand() *Conf {
	return &Conf{
		Debug:          data.Debug,
		Addr:           data.Server.Addr,
		Port:           data.Server.Port,
		ReactionWindow: time.Duration(data.Game.ReactionWindow) * time.Millisecond,
		StartThreshold: data.Game.StartThreshold,
	}
}

// Default returns a copy of the default configuration, including any
// flag overrides.
func Default() *Conf {
	c := defaultConfig
	return &c
}
