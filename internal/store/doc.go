// Package store persists destination accounts and per-sender conversations in
// SQLite and exposes helpers for driving their lifecycle.
//
// The Store manages database connections, schema initialization, the account
// registry (create/list/delete), and conversation persistence. Conversation
// writes go through a compare-and-set on the persisted state so two
// near-simultaneous deliveries for one sender cannot both observe the same
// state and race each other into duplicate side effects.
//
// Treat this package as the single source of truth for the persisted data
// model; when you add states or draft fields, update schema.sql and bump
// schemaVersion.
package store
