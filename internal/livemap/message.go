package livemap

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/beaconloc/presence/internal/location"
)

// AnonymousSubject keys messages that carry no subject id.
const AnonymousSubject = "anonymous"

// Update is one parsed push message.
type Update struct {
	SubjectID   string
	SubjectName string
	Label       location.Label
}

// rawMessage accepts both the hub's report shape and the numbered-room
// shape (room_no, unique_id, name).
type rawMessage struct {
	UniqueID  string `json:"uniqueID"`
	UniqueID2 string `json:"unique_id"`
	UserName  string `json:"userName"`
	Name      string `json:"name"`
	Room      any    `json:"room"`
	RoomNo    *int   `json:"room_no"`
	Floor     *int   `json:"floor"`
}

// ParseMessage decodes a push message. A room may be given by name ("room")
// or by number ("room_no", resolved through rooms). The floor defaults to
// the registry's floor for the room, then to -1.
func ParseMessage(data []byte, rooms *location.Registry) (Update, error) {
	var m rawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return Update{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	u := Update{
		SubjectID:   firstNonEmpty(m.UniqueID, m.UniqueID2, AnonymousSubject),
		SubjectName: firstNonEmpty(m.UserName, m.Name),
		Label:       location.Label{Floor: -1},
	}

	switch room := m.Room.(type) {
	case string:
		u.Label.Room = strings.TrimSpace(room)
	case float64:
		// Some senders put the number in "room".
		if room != math.Trunc(room) {
			return Update{}, fmt.Errorf("%w: room number %v is not an integer", ErrMalformedMessage, room)
		}
		n := int(room)
		m.RoomNo = &n
	case nil:
	default:
		return Update{}, fmt.Errorf("%w: room has type %T", ErrMalformedMessage, room)
	}

	if u.Label.Room == "" && m.RoomNo != nil {
		if rooms == nil {
			return Update{}, fmt.Errorf("%w: room_no %d without a registry", ErrUnknownRoom, *m.RoomNo)
		}
		r, err := rooms.RoomByNumber(*m.RoomNo)
		if err != nil {
			return Update{}, fmt.Errorf("%w: room_no %d", ErrUnknownRoom, *m.RoomNo)
		}
		u.Label = r.Label()
	}
	if u.Label.Room == "" {
		return Update{}, fmt.Errorf("%w: no room", ErrMalformedMessage)
	}

	switch {
	case m.Floor != nil:
		u.Label.Floor = *m.Floor
	case rooms != nil:
		if r, err := rooms.Room(u.Label.Room); err == nil {
			u.Label.Floor = r.Floor
		}
	}
	return u, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
