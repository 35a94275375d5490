// Package influxdb provides InfluxDB connectivity for ringclient.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, point writing, and health monitoring.
//
// # Purpose
//
// The client records video renderer sessions: when the camera preview or a
// call's video starts and stops, with resolution and duration. The
// SessionRecorder adapter plugs into video.Registry.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	registry := video.NewRegistry(vm, devices, video.Options{
//	    Recorder: influxdb.NewSessionRecorder(client, cfg.Client.ID),
//	})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
package influxdb
