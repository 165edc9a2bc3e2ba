// Package model holds the records persisted by the adapter: users, linked OAuth
// accounts, sessions, and one-time verification tokens.
//
// # Wire format
//
// Field names follow the Auth.js adapter schema (camelCase for identity fields,
// snake_case for OAuth token material) so buckets written by other adapters decode
// cleanly. Optional fields use omitempty; the adapter's partial updates rely on that
// to leave unset fields untouched.
//
// # What this package must NOT do
//
//   - Import kvauth or any store package.
//   - Perform I/O or derive storage keys.
package model
