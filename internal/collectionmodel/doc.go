// Package collectionmodel presents every registered collection, across all
// entity types, as a two-level tree-in-table for a model/view consumer.
//
//	row  column 0 (label, check)   column 1 (reserved)   column 2.. (extensions)
//	 0   Contacts                   -                     ext[0] ext[1]
//	       0  Kids                  -                     ext[0] ext[1]
//	 1   Address book               -                     ext[0] ext[1]
//
// Top-level rows are collections without a parent, in registration order;
// child rows are nested collections. The tree is updated incrementally when
// a watched manager adds or removes a collection and is never rebuilt on
// data-only changes.
//
// Column 0 carries the collection label and a check-state role that maps
// to enablement. Extensions add columns past the reserved one and roles from
// RoleExtensionBase; their change notifications are re-emitted as DataChanged
// on the matching index.
//
// The model is owned by the application and mutated only on the event loop.
// Readers on other goroutines use Tree, which takes a consistent snapshot.
package collectionmodel
