package webhook

import (
	"encoding/json"
	"errors"
	"fmt"

	dm "shoplink-backend/internal/domain/messenger"
)

var (
	// ErrNotPageObject is returned for deliveries whose object is not "page".
	ErrNotPageObject = errors.New("delivery object is not page")
	// ErrUndecodable is returned when the body is not a JSON object.
	ErrUndecodable = errors.New("delivery body is not a JSON object")
)

// EntryEvent is the single event taken from one delivery entry.
type EntryEvent struct {
	EntryID string
	Event   dm.InboundEvent
}

// Normalize validates a delivery and flattens it to at most one event per
// entry. Only messaging[0] of each entry is used; later events in the same
// entry are dropped. Entries with no events or no sender are skipped.
func Normalize(d *dm.Delivery) ([]EntryEvent, error) {
	if d == nil || d.Object != dm.ObjectPage {
		return nil, ErrNotPageObject
	}
	out := make([]EntryEvent, 0, len(d.Entry))
	for _, entry := range d.Entry {
		if len(entry.Messaging) == 0 {
			continue
		}
		ev, ok := NormalizeEvent(entry.Messaging[0])
		if !ok {
			continue
		}
		out = append(out, EntryEvent{EntryID: entry.ID, Event: ev})
	}
	return out, nil
}

// NormalizeEvent maps one messaging event. A message with text wins over a
// postback; an event with neither is inert. ok is false without a sender.
func NormalizeEvent(me dm.MessagingEvent) (ev dm.InboundEvent, ok bool) {
	if me.Sender == nil || me.Sender.ID == "" {
		return dm.InboundEvent{}, false
	}
	sender := me.Sender.ID
	switch {
	case me.Message != nil && me.Message.Text != "":
		return dm.NewMessageEvent(sender, me.Message.Text), true
	case me.Postback != nil && me.Postback.Payload != "":
		return dm.NewPostbackEvent(sender, me.Postback.Payload), true
	default:
		return dm.NewInertEvent(sender), true
	}
}

type rawDelivery struct {
	Object string          `json:"object"`
	Entry  json.RawMessage `json:"entry"`
}

type rawEntry struct {
	ID        string            `json:"id"`
	Messaging []json.RawMessage `json:"messaging"`
}

type rawSender struct {
	Sender *dm.Party `json:"sender"`
}

// ParseDelivery decodes a webhook body. Only the envelope must be well
// formed: an entry or event with unexpected field types degrades to an
// inert event for its sender, or is skipped when no sender can be read.
func ParseDelivery(body []byte) (*dm.Delivery, error) {
	var rd rawDelivery
	if err := json.Unmarshal(body, &rd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if rd.Object != dm.ObjectPage {
		return nil, ErrNotPageObject
	}

	d := &dm.Delivery{Object: rd.Object}
	var entries []json.RawMessage
	if len(rd.Entry) == 0 || json.Unmarshal(rd.Entry, &entries) != nil {
		return d, nil
	}
	for _, raw := range entries {
		d.Entry = append(d.Entry, decodeEntry(raw))
	}
	return d, nil
}

func decodeEntry(raw json.RawMessage) dm.Entry {
	var entry dm.Entry
	if json.Unmarshal(raw, &entry) == nil {
		return entry
	}
	var re rawEntry
	if json.Unmarshal(raw, &re) != nil || len(re.Messaging) == 0 {
		return dm.Entry{}
	}
	entry = dm.Entry{ID: re.ID}
	var me dm.MessagingEvent
	if json.Unmarshal(re.Messaging[0], &me) != nil {
		var rs rawSender
		_ = json.Unmarshal(re.Messaging[0], &rs)
		me = dm.MessagingEvent{Sender: rs.Sender}
	}
	entry.Messaging = []dm.MessagingEvent{me}
	return entry
}
