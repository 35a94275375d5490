// Package api implements the HTTP REST API and WebSocket server for ringclient.
//
// This package provides:
//   - REST endpoints over the collection tree, contacts and video registry
//   - WebSocket hub broadcasting model changes
//   - Optional passphrase/JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// Reads take snapshots from the models directly. Mutations run on the
// application's event loop through App.Call, so handlers never race the
// model owners. Model signals are relayed to WebSocket clients subscribed to
// the matching channel:
//
//	collections.changed   rows inserted or removed in the collection tree
//	collections.enabled   a collection's check state changed
//	contacts.changed      rows inserted, removed or merged in the person model
//	video.preview         the local preview started or stopped
//	video.call            a call renderer appeared or went away
//
// # Security
//
// With api.auth disabled every request is treated as having control scope;
// bind the server to loopback in that case. With it enabled, clients exchange
// the passphrase for a JWT at POST /api/v1/auth/token.
package api
