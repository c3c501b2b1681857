// Package httpserver builds the API's http.Server with the timeouts the
// service runs with in production.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for the given handler. Only the header timeout is
// set; evaluations can legitimately take as long as the AI provider call
// behind them.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
