// Package store provides SQLite-backed durable storage for the agent's
// working day.
//
// Four logical collections are owned here and nothing else:
//   - Loan snapshot: the working set downloaded for the selected agent
//   - Payments-by-loan: per-loan payment lists keyed by loan code
//   - Daily stats: the aggregate cache for the current working day
//   - Outbox: the append-only queue of unsynchronized mutations
//
// The outbox is the single shared mutable resource between concurrent
// UI actions. Entries are never mutated in place; corrections are
// delete-then-reappend, and bulk deletion happens only after the server
// has confirmed the batch that contained them.
//
// Reset tears the whole database down and recreates it. It refuses to
// run while outbox entries exist: a reset that destroys unconfirmed
// mutations is permanent data loss, so the precondition is checked,
// not caught.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: tolerate lock contention
//   - Single connection: SQLite allows one writer at a time
package store
