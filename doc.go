// Package kvauth persists an authentication domain (users, OAuth accounts,
// sessions, verification tokens) in a flat, prefix-namespaced key-value store such
// as Redis or a NATS JetStream KV bucket.
//
// The store only offers single-key put, get, and purge, so kvauth maintains its own
// secondary indexes: email → user id, user id → account key, user id → session key.
// Every primary record is written before its index entry. DeleteUser reads all the
// keys it needs before purging anything, then purges in a fixed order.
//
// # Usage
//
//	adapter, err := kvauth.New().
//		WithStore(kvstore.NewRedisStore(rdb)).
//		Build()
//
// Use WithConnector instead of WithStore to open a connection per operation, for
// example with [kvstore.NewNATSDialer].
//
// # Limitations
//
//   - One account and one session per user are indexed. Linking another account or
//     opening another session repoints the index; DeleteUser cascades only to the
//     indexed ones.
//   - Multi-key operations are not transactional. A failure part way through leaves
//     orphaned entries and is reported, never rolled back.
//   - Concurrent writers to one record race; the last write wins.
//   - DeleteSession leaves the user's session index entry behind.
//
// # What this package must NOT do
//
//   - Expose store clients, keys, or the JSON encoding in its API.
//   - Check token or session expiry; callers compare the stored expiry themselves.
//   - Retry store failures outside the opt-in DeleteUser cascade retry.
package kvauth
