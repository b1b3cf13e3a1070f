// Package timeouts defines shared timeout constants for the game session
// service and its oracle dependency.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// OracleRequest caps a single oracle StartGame/CheckWord attempt.
const OracleRequest = 2 * time.Second

// Shutdown limits how long the gRPC server and actor driver wait for
// in-flight work during graceful shutdown.
const Shutdown = 5 * time.Second

// BlockInterval is the default wall-clock length of one runtime block.
const BlockInterval = time.Second
