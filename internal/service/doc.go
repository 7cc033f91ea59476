// Package service coordinates the topology core for long-running use.
//
// A Session owns one topology graph, its fault model and its packet
// scheduler. The core packages are single-owner, so Session runs them inside
// one goroutine (Run) and every operation is a command sent over a channel
// and awaited by the caller. The same goroutine drives the generation and
// animation tickers, so a Stop issued between ticks never races a tick.
//
// # Event System
//
// Mutations publish events on an EventBus. The HTTP layer forwards them to
// browsers over Server-Sent Events.
//
// # Persistence
//
// Save and Load move documents between the session and a repository.Store.
// Store I/O happens on the caller's goroutine; only the document snapshot and
// the swap of the loaded graph run inside the session loop.
package service
