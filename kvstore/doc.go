// Package kvstore defines the flat key-value boundary the adapter persists through,
// and ships Redis and NATS JetStream KV backends for it.
//
// # Capabilities
//
// A [Store] offers atomic single-key Put, Get and Purge with read-after-write
// consistency on one connection, plus prefix listing. It offers no multi-key
// transactions and no secondary indexes; callers maintain their own.
//
// # Connection lifetime
//
// A [Connector] hands out a Store per logical operation. [Static] wraps a long-lived
// store whose release is a no-op; the dialers open a fresh connection on every
// Acquire and close it on release.
//
// # What this package must NOT do
//
//   - Interpret stored values.
//   - Rewrite keys; key grammar is the caller's concern.
package kvstore
