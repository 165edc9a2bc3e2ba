// Package audit relays records of destructive adapter operations (deletes, unlinks,
// token consumption) to a caller-supplied sink without blocking the store path.
//
// # Components
//
//   - [Sink] — event consumer (channel, JSON lines writer, no-op).
//   - [Dispatcher] — buffered async relay, drop-if-full or block-if-full.
//   - [Event] — timestamp, type, user, outcome, metadata.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the adapter does that.
//   - Import kvauth or any sibling internal package.
//   - Carry secrets: session and verification tokens never go into an Event.
package audit
