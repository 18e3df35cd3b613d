package bluez

import (
	"strings"

	"github.com/beaconloc/presence/internal/radio"
)

// errorClasses maps BlueZ D-Bus error names (and the adapter's own messages)
// onto the radio failure classes. Order matters: the first match wins.
var errorClasses = []struct {
	needle string
	class  error
}{
	{"org.bluez.Error.NotPermitted", radio.ErrUnauthorized},
	{"org.bluez.Error.NotAuthorized", radio.ErrUnauthorized},
	{"org.freedesktop.DBus.Error.AccessDenied", radio.ErrUnauthorized},
	{"org.bluez.Error.InvalidLength", radio.ErrPayloadTooLarge},
	{"Maximum", radio.ErrResourceExhausted},
	{"org.bluez.Error.NotSupported", radio.ErrFeatureUnsupported},
	{"org.bluez.Error.NotReady", radio.ErrUnsupported},
	{"org.freedesktop.DBus.Error.ServiceUnknown", radio.ErrUnsupported},
	{"no such adapter", radio.ErrUnsupported},
	{"org.bluez.Error.InProgress", radio.ErrTransientRadio},
}

// Classify returns the radio failure class for a BlueZ error.
// Anything unrecognised is radio.ErrInternal.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, c := range errorClasses {
		if strings.Contains(msg, c.needle) {
			return c.class
		}
	}
	return radio.ErrInternal
}
