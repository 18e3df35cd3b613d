// Package mqtt connects the relay hub to an MQTT broker.
//
// The broker is an optional side channel next to the WebSocket push:
//
//	locator --POST--> relay hub --WebSocket--> live maps
//	                      |
//	                      +--MQTT--> beaconloc/presence/{subject} (retained)
//	                      +--MQTT--> beaconloc/alert/floor
//	locator --MQTT--> beaconloc/ingest/{subject} --> relay hub (optional)
//
// The client sets a retained Last Will on beaconloc/system/status, restores
// subscriptions after reconnects and recovers panics in message handlers.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishRetained(mqtt.Topics{}.Presence(subjectID), body)
//
// TLS (cfg.Broker.TLS) should be enabled anywhere outside a lab network.
package mqtt
