// Package bluez drives a Linux Bluetooth LE adapter through BlueZ using
// tinygo.org/x/bluetooth.
//
// Scan results are pushed through a bounded channel to a forwarding
// goroutine, so the D-Bus signal loop never waits on the presence engine.
// BlueZ errors are mapped onto the radio failure classes by Classify.
//
// The adapter needs CAP_NET_ADMIN or membership in the bluetooth group.
// A permission refusal marks the radio unauthorized until Reauthorize.
package bluez
