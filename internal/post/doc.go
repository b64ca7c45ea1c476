// Package post holds the deferred-delivery domain: pending deliveries,
// named destinations, and the UTC-offset normalizer they share.
//
// Persistence is delegated to a Store; both collections are written as
// whole-document overwrites after every mutation.
package post
