// Package mqtt provides MQTT client connectivity for ringclient.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The telephony daemon publishes its video signals and retained device state
// on the bus, and accepts camera commands from clients. The broker decouples
// the client model layer from the daemon process.
//
//	ringclient ↔ MQTT Broker ↔ telephony daemon
//
// # Security Considerations
//
//   - TLS should be enabled when the broker is not on localhost (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{Daemon: cfg.Daemon.TopicPrefix}
//	err = client.Subscribe(topics.AllVideoSignals(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.Publish(topics.VideoCommand(mqtt.CommandStartCamera), nil, 1, false)
package mqtt
