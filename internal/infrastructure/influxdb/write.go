package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementPresence   = "presence"
	MeasurementFloorAlert = "floor_alert"
)

// PresenceSample is one accepted presence report as stored in InfluxDB.
// Room and floor are tags so dashboards can group by location.
type PresenceSample struct {
	SubjectID string
	Name      string
	Room      string
	Floor     int
	Available bool
	At        time.Time
}

// WritePresence queues a presence sample. Non-blocking.
func (c *Client) WritePresence(s PresenceSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(presencePoint(s))
}

// WriteFloorAlert queues a floor alert for the sample. Non-blocking.
func (c *Client) WriteFloorAlert(s PresenceSample, allowedFloor int) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(floorAlertPoint(s, allowedFloor))
}

func presencePoint(s PresenceSample) *write.Point {
	available := 0
	if s.Available {
		available = 1
	}
	return write.NewPoint(MeasurementPresence,
		map[string]string{
			"subject_id": s.SubjectID,
			"room":       s.Room,
		},
		map[string]any{
			"name":      s.Name,
			"floor":     s.Floor,
			"available": available,
		},
		timestamp(s.At),
	)
}

func floorAlertPoint(s PresenceSample, allowedFloor int) *write.Point {
	return write.NewPoint(MeasurementFloorAlert,
		map[string]string{
			"subject_id": s.SubjectID,
		},
		map[string]any{
			"name":          s.Name,
			"room":          s.Room,
			"floor":         s.Floor,
			"allowed_floor": allowedFloor,
		},
		timestamp(s.At),
	)
}

func timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
