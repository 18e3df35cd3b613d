// Package influxdb stores presence history as time series.
//
// Every report the relay hub accepts becomes a "presence" point tagged by
// subject and room. Reports above the allowed floor also produce a
// "floor_alert" point.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePresence(influxdb.PresenceSample{SubjectID: id, Room: "Room 1", Floor: 1, Available: true})
//
// Writes are batched (batch_size, flush_interval) and never block the caller.
package influxdb
