package conversation

import (
	"fmt"

	dm "shoplink-backend/internal/domain/messenger"
)

// Postback payloads carried by the buttons below.
const (
	PayloadViewProducts   = "VIEW_PRODUCTS"
	PayloadContactSupport = "CONTACT_SUPPORT"
	PayloadBuyTShirt      = "BUY_TSHIRT"
	PayloadBuyHoodie      = "BUY_HOODIE"
)

const (
	TextProductsIntro = "🛍️ Here are our top products:"
	TextSupport       = "📞 A support agent will be with you shortly."
	TextTShirtInCart  = "Great choice! The T-Shirt has been added to your cart."
	TextHoodieInCart  = "Nice! The Hoodie is now in your cart."
	echoTextFormat    = `You sent: "%s". Type "menu" to see options!`
	welcomeTitle      = "Welcome to ShopLink!"
	welcomeSubtitle   = "Your one-stop shop for everything."
	welcomeImageURL   = "https://img.freepik.com/free-vector/shopping-online-concept-flat-design_1150-5154.jpg"
	buyNowButtonTitle = "Buy Now"
)

// Product is one entry of the catalog carousel.
type Product struct {
	Name     string
	Price    float64
	ImageURL string
	Payload  string
}

// Catalog is the fixed product list, in display order.
var Catalog = []Product{
	{
		Name:     "Classic T-Shirt",
		Price:    25.00,
		ImageURL: "https://img.freepik.com/free-psd/isolated-white-t-shirt-front-view_125540-1194.jpg",
		Payload:  PayloadBuyTShirt,
	},
	{
		Name:     "Stylish Hoodie",
		Price:    50.00,
		ImageURL: "https://img.freepik.com/free-psd/hoodie-mockup-isolated_1310-1563.jpg",
		Payload:  PayloadBuyHoodie,
	},
}

// WelcomeTemplate is the main menu card.
func WelcomeTemplate() dm.OutboundResponse {
	return dm.GenericTemplate(dm.Element{
		Title:    welcomeTitle,
		ImageURL: welcomeImageURL,
		Subtitle: welcomeSubtitle,
		Buttons: []dm.Button{
			dm.PostbackButton("🛍️ View Products", PayloadViewProducts),
			dm.PostbackButton("📞 Contact Support", PayloadContactSupport),
		},
	})
}

// CatalogTemplate renders Catalog as a generic template carousel.
func CatalogTemplate() dm.OutboundResponse {
	elements := make([]dm.Element, 0, len(Catalog))
	for _, p := range Catalog {
		elements = append(elements, dm.Element{
			Title:    p.Name,
			ImageURL: p.ImageURL,
			Subtitle: fmt.Sprintf("Price: $%.2f", p.Price),
			Buttons:  []dm.Button{dm.PostbackButton(buyNowButtonTitle, p.Payload)},
		})
	}
	return dm.GenericTemplate(elements...)
}

// EchoText answers a message that matched no keyword.
func EchoText(original string) dm.OutboundResponse {
	return dm.TextResponse(fmt.Sprintf(echoTextFormat, original))
}
