package messenger

const (
	AttachmentTemplate = "template"
	TemplateGeneric    = "generic"
	ButtonTypePostback = "postback"
)

// OutboundResponse is the "message" object of a send API request: either a
// plain text or a template attachment.
type OutboundResponse struct {
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type Attachment struct {
	Type    string          `json:"type"`
	Payload TemplatePayload `json:"payload"`
}

type TemplatePayload struct {
	TemplateType string    `json:"template_type"`
	Elements     []Element `json:"elements"`
}

// Element is one card of a generic template.
type Element struct {
	Title    string   `json:"title"`
	ImageURL string   `json:"image_url,omitempty"`
	Subtitle string   `json:"subtitle,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// Button is a postback button; Payload is echoed back verbatim when clicked.
type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// TextResponse builds a plain text message.
func TextResponse(text string) OutboundResponse {
	return OutboundResponse{Text: text}
}

// GenericTemplate builds a generic template message from ordered elements.
func GenericTemplate(elements ...Element) OutboundResponse {
	return OutboundResponse{
		Attachment: &Attachment{
			Type: AttachmentTemplate,
			Payload: TemplatePayload{
				TemplateType: TemplateGeneric,
				Elements:     elements,
			},
		},
	}
}

// PostbackButton builds a postback button.
func PostbackButton(title, payload string) Button {
	return Button{Type: ButtonTypePostback, Title: title, Payload: payload}
}

// IsTemplate reports whether the response carries a template attachment.
func (r OutboundResponse) IsTemplate() bool {
	return r.Attachment != nil
}

// Payloads lists every button payload of a template response in order.
func (r OutboundResponse) Payloads() []string {
	if r.Attachment == nil {
		return nil
	}
	var out []string
	for _, el := range r.Attachment.Payload.Elements {
		for _, b := range el.Buttons {
			out = append(out, b.Payload)
		}
	}
	return out
}

// SendRequest is the send API request envelope.
type SendRequest struct {
	Recipient Party            `json:"recipient"`
	Message   OutboundResponse `json:"message"`
}

// SendResult is the send API success body.
type SendResult struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// APIError is the error object returned by the Graph API.
type APIError struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}
