// Package relay is the hub between locators and live map viewers.
//
// Locators POST a report per scan cycle to /submit-data. Every accepted
// report is applied to the hub's own presence state, recorded in the
// occupancy ledger, mirrored to MQTT and InfluxDB when those are
// configured, and then pushed verbatim to every viewer connected on /ws.
// Ingestion is serialised, so viewers see reports for a subject in the order
// the hub accepted them. Viewers get nothing replayed on connect.
//
// The server follows the same lifecycle as other infrastructure components:
//
//	srv, err := relay.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package relay
