// Package main provides the entry point for the upmon monitoring engine.
//
// upmon checks ping (TCP connect) and website (HTTP GET) monitors on their
// own periodicity, stores one status per check in SQLite and serves the
// history over an HTTP API.
package main

import "os"

// Version information set during build time
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
