// Shared logging
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
	"os"

	"github.com/decred/slog"
)

var (
	backend = slog.NewBackend(os.Stderr)
	level   = slog.LevelInfo
)

// SetDebug raises the level of loggers created afterwards.  Call it
// before wiring up the subsystems.
func SetDebug(debug bool) {
	if debug {
		level = slog.LevelDebug
	} else {
		level = slog.LevelInfo
	}
}

// Logger creates a logger for one subsystem tag.
func Logger(tag string) slog.Logger {
	l := backend.Logger(tag)
	l.SetLevel(level)
	return l
}
