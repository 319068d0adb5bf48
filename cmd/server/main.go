// Entry point
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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	coup "go-coup"
	"go-coup/conf"
	"go-coup/sched"
	"go-coup/web"
)

// Default file name for the configuration file
const defconf = "go-coup.toml"

func main() {
	var (
		confFile = flag.String("conf", defconf, "Name of configuration file")
		dumpConf = flag.Bool("dump-config", false, "Dump active configuration")
	)

	flag.Parse()
	if flag.NArg() != 0 {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Too many arguments passed to %s.\nUsage:\n",
			os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load the configuration from disk (if available)
	config, err := conf.Open(*confFile)
	if err != nil {
		if !os.IsNotExist(err) || *confFile != defconf {
			log.Fatal(err)
		}
		config = conf.Default()
	}

	// Dump the configuration to standard output if requested
	if *dumpConf {
		if err := config.Dump(os.Stdout); err != nil {
			log.Fatalln("Failed to dump configuration:", err)
		}
		os.Exit(0)
	}

	coup.SetDebug(config.Debug)
	logger := coup.Logger("COUP")
	logger.Debugf("Debug logging has been enabled")

	ctx := context.Background()

	// Launch the dispatcher
	dispatcher := sched.MakeDispatcher(int(config.StartThreshold),
		config.ReactionWindow, coup.Logger("DISP"))
	go dispatcher.Start(ctx)

	// Launch the server
	if err := web.Serve(ctx, config, dispatcher); err != nil {
		logger.Criticalf("Server failed: %s", err)
		os.Exit(1)
	}
}
