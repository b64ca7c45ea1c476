// Package intake drives the per-user conversational flows: scheduling a
// deferred post (date-time, timezone, destination, content) and registering
// a destination (name, chat reference).
//
// Sessions are transient and in-memory; /start resets a session from any
// state. Durable writes happen only when a flow completes.
package intake
