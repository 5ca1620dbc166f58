package messenger

// ObjectPage is the only delivery object type this service handles.
const ObjectPage = "page"

// Delivery is the body of one webhook POST from the platform.
type Delivery struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups messaging events for one page.
type Entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent is a single event inside an entry. Message and Postback are
// mutually exclusive on the wire.
type MessagingEvent struct {
	Sender    *Party         `json:"sender,omitempty"`
	Recipient *Party         `json:"recipient,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Message   *InboundText   `json:"message,omitempty"`
	Postback  *InboundButton `json:"postback,omitempty"`
}

type Party struct {
	ID string `json:"id"`
}

type InboundText struct {
	MID  string `json:"mid,omitempty"`
	Text string `json:"text,omitempty"`
}

type InboundButton struct {
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload,omitempty"`
}
