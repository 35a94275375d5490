// Package app assembles ringclient: it owns every model, manager and
// infrastructure connection of one client process.
//
//	                 ┌──────────────── App ────────────────┐
//	vCard dir ──►    │ contact Manager ──► Master[Person]  │
//	SQLite   ──►     │        │                            │
//	                 │        ▼                            │
//	                 │ collectionmodel.Model ◄── state     │ ──► api
//	                 │                                     │
//	MQTT daemon ◄──► │ daemon.Client ──► video.Registry    │
//	 (Supervisor)    │                      │              │
//	                 │                      ▼              │
//	                 │               influxdb recorder     │
//	                 └───────────── eventloop.Loop ────────┘
//
// There are no process-wide singletons. Components receive the App's loop,
// arena and models explicitly. Model state is mutated only on the loop; use
// Call to run work there from other goroutines.
package app
