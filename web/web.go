// HTTP server
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
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	coup "go-coup"
	"go-coup/conf"
	"go-coup/proto"
)

//go:embed index.html
var index []byte

// Serve accepts players on /websocket and serves the index page on /
// until the context ends.
func Serve(ctx context.Context, cf *conf.Conf, disp proto.Dispatcher) error {
	log := coup.Logger("WEB")

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(index)
	})
	mux.HandleFunc("/websocket", upgrader(disp, log))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cf.Addr, cf.Port),
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	log.Infof("Listening on %s", srv.Addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
