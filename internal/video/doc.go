// Package video tracks video devices and the renderers that display decoded
// frames from the telephony daemon.
//
// The daemon decodes video into shared memory and announces each stream with
// startedDecoding(key, shmPath, width, height) and stoppedDecoding(key,
// shmPath). The key is a call id, or PreviewKey for the local camera. The
// Registry correlates those events with one Renderer per key:
//
//	StartedDecoding(k) ──▶ create or update renderer ──▶ StartRendering
//	                         │
//	                         ├─ k == "local" ─▶ PreviewStarted, previewing = true
//	                         └─ otherwise   ─▶ VideoCallInitiated
//
//	StoppedDecoding(k) ──▶ StopRendering ──▶ PreviewStopped | VideoCallEnded ──▶ destroy
//
// # Worker affinity
//
// When the registry has a Worker, renderers are handed to it as soon as they
// are created. From then on the event loop only reaches them through queued
// messages; the renderer's state is mutated on the worker goroutine alone.
//
// # Devices
//
// DeviceModel mirrors the daemon's device roster. Reconcile compares the
// daemon's names with the local ones: new names get a Device, vanished names
// are dropped, unchanged names keep their Device. A daemon that cannot be
// reached yields an empty list.
package video
