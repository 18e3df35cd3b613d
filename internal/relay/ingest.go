package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/beaconloc/presence/internal/infrastructure/influxdb"
	"github.com/beaconloc/presence/internal/infrastructure/mqtt"
	"github.com/beaconloc/presence/internal/ledger"
	"github.com/beaconloc/presence/internal/presence"
)

// IngestResult describes what one accepted report caused.
type IngestResult struct {
	Change ledger.Change
	Alert  bool
}

// floorAlert is published to the MQTT alert topic.
type floorAlert struct {
	presence.IngestPayload
	AllowedFloor int  `json:"allowed_floor"`
	Alert        bool `json:"alert"`
}

// Ingest validates and applies one report: presence state, ledger, MQTT
// mirror, InfluxDB, floor policy, then broadcast. Sink failures are logged
// and do not reject the report.
//
// Returns presence.ErrInvalidReport for a payload that fails validation.
func (s *Server) Ingest(ctx context.Context, p presence.IngestPayload) (IngestResult, error) {
	if err := p.Validate(); err != nil {
		s.rejected.Add(1)
		return IngestResult{}, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		s.rejected.Add(1)
		return IngestResult{}, fmt.Errorf("encoding report: %w", err)
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	report := p.Report(s.clock.Now())
	var result IngestResult

	s.state.Apply(report.SubjectID, report.SubjectName, report.Label(), report.EmittedAt)

	if s.ledger != nil {
		change, err := s.ledger.Apply(ctx, report)
		if err != nil {
			s.logger.Error("ledger write failed", "error", err, "subject_id", report.SubjectID)
		}
		result.Change = change
	}

	if s.mqtt != nil && s.mqtt.IsConnected() {
		if err := s.mqtt.PublishRetained(mqtt.Topics{}.Presence(report.SubjectID), data); err != nil {
			s.logger.Warn("MQTT presence mirror failed", "error", err, "subject_id", report.SubjectID)
		}
	}

	sample := influxdb.PresenceSample{
		SubjectID: report.SubjectID,
		Name:      report.SubjectName,
		Room:      report.Room,
		Floor:     report.Floor,
		Available: report.Available,
		At:        report.EmittedAt,
	}
	if s.influx != nil {
		s.influx.WritePresence(sample)
	}

	if s.cfg.AllowedFloor > 0 && report.Floor > s.cfg.AllowedFloor {
		result.Alert = true
		s.raiseFloorAlert(p, sample)
	}

	s.hub.Broadcast(data)
	s.accepted.Add(1)

	s.logger.Debug("report accepted",
		"subject_id", report.SubjectID,
		"room", report.Room,
		"floor", report.Floor,
		"status", p.Status,
		"ledger", result.Change.String(),
	)
	return result, nil
}

func (s *Server) raiseFloorAlert(p presence.IngestPayload, sample influxdb.PresenceSample) {
	s.alerts.Add(1)
	s.logger.Warn("subject above allowed floor",
		"subject_id", sample.SubjectID,
		"name", sample.Name,
		"room", sample.Room,
		"floor", sample.Floor,
		"allowed_floor", s.cfg.AllowedFloor,
	)

	if s.influx != nil {
		s.influx.WriteFloorAlert(sample, s.cfg.AllowedFloor)
	}
	if s.mqtt == nil || !s.mqtt.IsConnected() {
		return
	}
	payload, err := json.Marshal(floorAlert{IngestPayload: p, AllowedFloor: s.cfg.AllowedFloor, Alert: true})
	if err != nil {
		s.logger.Error("encoding floor alert", "error", err)
		return
	}
	if err := s.mqtt.PublishEvent(mqtt.Topics{}.FloorAlert(), payload); err != nil {
		s.logger.Warn("MQTT floor alert failed", "error", err)
	}
}

// subscribeIngest accepts reports published to the MQTT ingest topic. The
// topic's last level must match the payload's uniqueID.
func (s *Server) subscribeIngest() error {
	if s.mqtt == nil {
		return fmt.Errorf("relay.mqtt_ingest set but MQTT is not configured")
	}
	topic := mqtt.Topics{}.AllIngest()
	s.logger.Info("subscribing to MQTT ingest", "topic", topic)
	return s.mqtt.Subscribe(topic, 1, s.handleMQTTIngest)
}

func (s *Server) handleMQTTIngest(topic string, payload []byte) error {
	p, err := presence.Decode(payload)
	if err != nil {
		s.rejected.Add(1)
		s.logger.Warn("rejected MQTT report", "topic", topic, "error", err)
		return nil
	}
	if subject, ok := mqtt.SubjectFromTopic(topic); !ok || subject != p.UniqueID {
		s.rejected.Add(1)
		s.logger.Warn("rejected MQTT report: topic does not match uniqueID",
			"topic", topic,
			"unique_id", p.UniqueID,
		)
		return nil
	}
	if _, err := s.Ingest(context.Background(), p); err != nil {
		s.logger.Warn("rejected MQTT report", "topic", topic, "error", err)
	}
	return nil
}
