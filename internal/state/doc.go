// Package state provides thread-safe state containers shared by the storefront
// managers and the UI.
//
// # Overview
//
// Every manager (session, cart, wishlist, notifications) owns exactly one
// Store. The manager is the single writer; the UI and other managers only read
// snapshots or subscribe to change signals. Nothing outside the owning manager
// mutates the underlying collections.
//
//	Writer (manager):              Readers (UI, app wiring):
//	┌─────────────────┐            ┌──────────────────┐
//	│ apply delta     │            │ <-Subscribe()    │
//	│ store.Update()  │───────────→│ store.Snapshot() │
//	│ remote call     │  (mutex)   │ render / react   │
//	│ reconcile       │            │                  │
//	└─────────────────┘            └──────────────────┘
//
// # Core Types
//
// Store[T]:
//   - Holds one value guarded by a sync.RWMutex
//   - Update runs a mutation closure under the write lock, so the next state is
//     always derived from the current state rather than a captured snapshot
//   - Snapshot returns a defensive copy using the clone function given to New
//   - Subscribe delivers coalesced change signals (buffer of one per subscriber)
//
// Sequencer:
//   - Per-key FIFO tickets
//   - A ticket is taken while the manager applies its local delta, then the
//     remote call waits for its turn, so two rapid clicks on the same cart line
//     reach the backend in the order they were made
//   - Pending(key) lets reconciliation tell whether a later mutation of the
//     same entity is still in flight
//
// # Concurrency Model
//
//   - Update(): write lock, then signal subscribers after unlocking
//   - Snapshot()/Read(): read lock
//   - Locks are never held across network I/O
//
// # Testing Considerations
//
// The zero value of both types is ready to use:
//
//	var s state.Store[[]int]
//	var seq state.Sequencer
package state
