package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic the presence stack uses.
const TopicPrefix = "beaconloc"

// Topics builds the presence stack's MQTT topics.
//
//	mqtt.Topics{}.Presence("5f0c...")  // beaconloc/presence/5f0c...
//	mqtt.Topics{}.FloorAlert()         // beaconloc/alert/floor
type Topics struct{}

// Presence is the retained mirror of a subject's latest report.
func (Topics) Presence(subjectID string) string {
	return fmt.Sprintf("%s/presence/%s", TopicPrefix, subjectID)
}

// AllPresence matches every subject's mirror topic.
func (Topics) AllPresence() string {
	return TopicPrefix + "/presence/+"
}

// Ingest is where a locator may publish a report instead of POSTing it.
func (Topics) Ingest(subjectID string) string {
	return fmt.Sprintf("%s/ingest/%s", TopicPrefix, subjectID)
}

// AllIngest is the relay hub's ingest subscription.
func (Topics) AllIngest() string {
	return TopicPrefix + "/ingest/+"
}

// FloorAlert carries reports placed above the allowed floor.
func (Topics) FloorAlert() string {
	return TopicPrefix + "/alert/floor"
}

// SystemStatus is the retained online/offline status (and LWT) topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// SubjectFromTopic returns the last level of an ingest or presence topic.
func SubjectFromTopic(topic string) (string, bool) {
	i := strings.LastIndexByte(topic, '/')
	if i < 0 || i == len(topic)-1 {
		return "", false
	}
	return topic[i+1:], true
}
