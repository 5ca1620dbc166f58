package messenger

// EventKind is the variant of a normalized inbound event.
type EventKind string

const (
	EventMessage  EventKind = "message"
	EventPostback EventKind = "postback"
	// EventInert carries neither text nor a postback payload. The sender is
	// still recorded but nothing is dispatched.
	EventInert EventKind = "inert"
)

// InboundEvent is the canonical, flattened shape of one messaging event.
// Text is set only for EventMessage, Payload only for EventPostback.
type InboundEvent struct {
	SenderID string
	Kind     EventKind
	Text     string
	Payload  string
}

func NewMessageEvent(senderID, text string) InboundEvent {
	return InboundEvent{SenderID: senderID, Kind: EventMessage, Text: text}
}

func NewPostbackEvent(senderID, payload string) InboundEvent {
	return InboundEvent{SenderID: senderID, Kind: EventPostback, Payload: payload}
}

func NewInertEvent(senderID string) InboundEvent {
	return InboundEvent{SenderID: senderID, Kind: EventInert}
}
