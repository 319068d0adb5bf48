// Configuration loading and dumping
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
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// Load parses a configuration from R on top of the defaults.
func Load(r io.Reader) (*Conf, error) {
	data := defaultConfig.repr()
	if _, err := toml.NewDecoder(r).Decode(&data); err != nil {
		return nil, err
	}
	return data.expand(), nil
}

// Open reads the configuration file NAME.
func Open(name string) (*Conf, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Load(file)
}

// Dump serialises the configuration into a writer.
func (c *Conf) Dump(wr io.Writer) error {
	data := c.repr()
	return toml.NewEncoder(wr).Encode(data)
}
