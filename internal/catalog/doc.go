// Package catalog persists the history of packaging runs in SQLite so
// status and runs commands can report on past work. It is a ledger, not a
// queue: records are written once when a run finishes.
package catalog
