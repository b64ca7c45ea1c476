// Package storage provides the durable document store behind the destination
// registry and the delivery queue.
//
// Drivers:
//   - "file": two JSON documents (destinations.json, deliveries.json), each
//     rewritten whole on every save
//   - "mem": ephemeral in-process store (also used by tests)
//   - "sqlite": SQLite database file (optional build tag)
package storage
