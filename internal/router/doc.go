// Package router carries lanlight messages between the coordinator and the
// LAN gateway over MQTT.
//
// The gateway owns the light network's binary framing. It relays every
// report it hears as a JSON envelope on lanlight/report/{device} and
// transmits whatever arrives on lanlight/request/...:
//
//	coordinator ──SendMessage──► MQTTRouter ──► lanlight/request/broadcast
//	                                        └─► lanlight/request/{device}
//
//	lanlight/report/#          ──► MQTTRouter ──handler──► coordinator.HandleMessage
//	lanlight/gateway/+/status  ──► MQTTRouter (PAN readiness)
//
// StatePublisher mirrors the registry onto retained lanlight/state/{device}
// topics for other services on the broker.
package router
