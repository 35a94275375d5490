// Package model provides the generic master model: the single deduplicated
// table of every entity of one type, fed by all collections of that type.
//
// Collections never touch the table directly. Each one receives a mediator
// from MediatorFor and streams items through it:
//
//	collection A ──▶ mediator(A) ──┐
//	collection B ──▶ mediator(B) ──┼──▶ Master[T] rows ──▶ RowsInserted / RowsRemoved / DataChanged
//	collection C ──▶ mediator(C) ──┘
//
// # Deduplication
//
// Rows are keyed by UID and kept in first-insert order. When a second
// collection contributes an entity whose UID already has a row, the
// contribution is merged into the existing entity with MergeFrom: the first
// seen value of every scalar attribute wins, multi-valued attributes are
// unioned. Exact duplicates change nothing and emit no signal. A row disappears when its last contributor withdraws.
//
// # Thread Safety
//
// The row table is guarded by a RWMutex. Entities themselves are mutated by
// MergeFrom on the event loop goroutine; readers elsewhere should go through
// the loop when they need a stable view of entity attributes.
package model
