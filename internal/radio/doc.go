// Package radio defines the abstract short-range radio capability.
//
// The presence engine never talks to a platform stack directly. It uses
// Scanner, Advertiser and Authorizer, and classifies failures with the
// sentinel errors in this package. Concrete backends live in subpackages:
//
//   - radio/bluez: Linux BlueZ via tinygo.org/x/bluetooth
//   - radio/fake:  in-memory radio for tests and dry runs
package radio
