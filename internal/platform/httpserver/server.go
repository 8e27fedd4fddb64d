// Package httpserver builds the process http.Server with hardened timeouts.
package httpserver

import (
	"net/http"
	"time"
)

// New creates an http.Server for the given handler. Handler-level deadlines
// are enforced by the router's timeout middleware; these bound the connection
// itself against slow clients.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
