// Package collection provides the Collection Framework for ringclient.
//
// A collection is a source of items of one entity type (contacts, video
// devices, ...). Concrete sources such as a vCard directory, an address-book
// database or the in-memory store for unsaved contacts implement Backend and
// are registered with the Manager for their entity type. The manager binds
// each one to a Mediator, the narrow sink through which items reach the
// entity's master model.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                         Manager[T]                               │
//	│                                                                  │
//	│  RegisterKind(kind, factory)     AddCollection(kind, params, p)  │
//	│           │                                │                     │
//	│           ▼                                ▼                     │
//	│  ┌──────────────────┐   Binding   ┌──────────────────┐           │
//	│  │   Factory[T]     │────────────▶│   Backend[T]     │           │
//	│  └──────────────────┘             │  Editor[T] ──────┼──▶ Mediator[T] ──▶ master model
//	│                                   └──────────────────┘           │
//	│           Collection[T] = Backend[T] + handle + gate             │
//	└──────────────────────────────────────────────────────────────────┘
//	                 │ Added / Removed
//	                 ▼
//	          CollectionModel (tree of every collection)
//
// # Features
//
// Every collection advertises a Feature bitset. Operations whose bit is not
// set are refused with ErrUnsupported and leave both the editor and the
// master model untouched:
//
//	Load, Reload   FeatureLoad
//	Clear          FeatureClear
//	Save, SaveAll  FeatureSave
//	Edit           FeatureEdit
//	AddNew         FeatureAdd
//	Remove         FeatureRemove
//	AddExisting    FeatureLoad or FeatureAdd
//	SetEnabled     FeatureDisableable
//
// Enablement is orthogonal to features: a disabled collection still answers
// every call according to its bits.
//
// # Identity
//
// ID is a short persistent tag per collection class ("fpc2" for the vCard
// directory). Handle identifies one live instance and is what parent links
// and the collection tree use. Parent links are plain handles resolved through
// the Arena; no collection holds a reference to another.
//
// # Thread Safety
//
// Managers and collections are driven from the event loop. Internal state is
// additionally guarded by mutexes so read-only queries from other goroutines
// observe consistent snapshots.
package collection
