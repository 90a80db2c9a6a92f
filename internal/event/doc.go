// Package event defines the typed domain events flowing through the stride
// pipeline. Raw file-touch signals are normalized into these events, which
// are then fanned out to subscribers by the hub.
//
// The event kinds form a closed set: every consumer (decision loop, push
// server, monitor) can exhaustively switch over them, and adding a kind is
// a compile-time-visible change.
package event
