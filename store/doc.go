// Package store provides durable persistence for league snapshots: the
// standings document, the append-only accepted-result log and the frozen
// roster. Three implementations are included: a volatile in-memory store for
// tests, an atomic JSON file store (write to temp, fsync, rename) and a SQLite
// backed store using WAL mode for concurrent access.
package store
