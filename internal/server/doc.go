// Package server implements the HTTP and WebSocket surface of the relay.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, routing, and HTTP handlers. The broadcast core
// itself lives in package relay; this package drives it from real
// connections.
package server
