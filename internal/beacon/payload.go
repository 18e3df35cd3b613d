package beacon

import (
	"fmt"

	"github.com/beaconloc/presence/internal/radio"
)

// Advertising defaults.
const (
	DefaultManufacturerID uint16 = 0xFFFF
	DefaultLocalName             = "RoomBeacon1"
)

// DefaultData is the payload carried under DefaultManufacturerID.
var DefaultData = []byte{0x01, 0x02, 0x03, 0x04}

// Legacy advertising PDU budget and AD structure overheads, in bytes.
const (
	maxAdvertisingData = 31
	flagsADSize        = 3 // length, type, flags
	adHeaderSize       = 2 // length, type
	manufacturerIDSize = 2
)

// Payload is what a beacon advertises.
type Payload struct {
	LocalName      string
	ManufacturerID uint16
	Data           []byte
}

// DefaultPayload returns the standard payload under name. An empty name
// uses DefaultLocalName.
func DefaultPayload(name string) Payload {
	if name == "" {
		name = DefaultLocalName
	}
	return Payload{
		LocalName:      name,
		ManufacturerID: DefaultManufacturerID,
		Data:           append([]byte(nil), DefaultData...),
	}
}

// Size returns the encoded advertising data length: flags, complete local
// name and manufacturer data structures.
func (p Payload) Size() int {
	n := flagsADSize
	if p.LocalName != "" {
		n += adHeaderSize + len(p.LocalName)
	}
	return n + adHeaderSize + manufacturerIDSize + len(p.Data)
}

// Validate checks the payload fits a legacy advertising PDU.
func (p Payload) Validate() error {
	if size := p.Size(); size > maxAdvertisingData {
		return fmt.Errorf("%w: %d bytes, limit %d", radio.ErrPayloadTooLarge, size, maxAdvertisingData)
	}
	return nil
}

func (p Payload) advertisement() radio.Advertisement {
	return radio.Advertisement{
		LocalName:      p.LocalName,
		ManufacturerID: p.ManufacturerID,
		Data:           append([]byte(nil), p.Data...),
	}
}
