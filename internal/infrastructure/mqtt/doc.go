// Package mqtt provides the MQTT client lanlight uses to reach its LAN gateway.
//
// The gateway owns the light network's binary framing; lanlight exchanges
// JSON envelopes with it over a broker:
//
//	lanlight ↔ MQTT broker ↔ LAN gateway ↔ lights
//
// This package manages:
//   - Connection with auto-reconnect and exponential backoff
//   - Publishing with QoS and retained flags
//   - Subscriptions, restored automatically after a reconnect
//   - Last Will and Testament on lanlight/system/status
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllReports(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(payload)
//	    })
//
// Topic layout is documented on Topics.
package mqtt
