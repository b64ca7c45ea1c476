// Package dispatch runs the periodic delivery scan.
//
// Every tick it loads all pending deliveries and sends the ones whose
// scheduled instant falls inside the dispatch window, then deletes them.
// Poll-and-scan is deliberate: the pending set is small (single-operator
// use), and the window is wider than the tick interval so timer jitter
// cannot skip a due delivery.
package dispatch
