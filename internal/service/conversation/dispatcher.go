package conversation

import (
	"strings"

	dm "shoplink-backend/internal/domain/messenger"
)

// menuKeywords open the welcome card when found anywhere in a message,
// case-insensitively. "hi" also matches inside words such as "this".
var menuKeywords = []string{"hi", "hello", "menu"}

// postbackRoutes maps an exact button payload to its replies.
var postbackRoutes = map[string]func() []dm.OutboundResponse{
	PayloadViewProducts: func() []dm.OutboundResponse {
		return []dm.OutboundResponse{dm.TextResponse(TextProductsIntro), CatalogTemplate()}
	},
	PayloadContactSupport: func() []dm.OutboundResponse {
		return []dm.OutboundResponse{dm.TextResponse(TextSupport)}
	},
	PayloadBuyTShirt: func() []dm.OutboundResponse {
		return []dm.OutboundResponse{dm.TextResponse(TextTShirtInCart)}
	},
	PayloadBuyHoodie: func() []dm.OutboundResponse {
		return []dm.OutboundResponse{dm.TextResponse(TextHoodieInCart)}
	},
}

// Dispatch maps an event to the ordered responses to send back. It has no
// state and no side effects; an empty result means nothing is sent.
func Dispatch(ev dm.InboundEvent) []dm.OutboundResponse {
	switch ev.Kind {
	case dm.EventMessage:
		return dispatchMessage(ev.Text)
	case dm.EventPostback:
		return dispatchPostback(ev.Payload)
	default:
		return nil
	}
}

func dispatchMessage(text string) []dm.OutboundResponse {
	lower := strings.ToLower(text)
	for _, kw := range menuKeywords {
		if strings.Contains(lower, kw) {
			return []dm.OutboundResponse{WelcomeTemplate()}
		}
	}
	return []dm.OutboundResponse{EchoText(text)}
}

func dispatchPostback(payload string) []dm.OutboundResponse {
	route, ok := postbackRoutes[payload]
	if !ok {
		return nil
	}
	return route()
}
