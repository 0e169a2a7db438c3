// Package view renders the storefront messages sent to the chat.
package view

import (
	"fmt"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/storefront-bot/internal/bot/keyboard"
	"github.com/Proton-105/storefront-bot/internal/commerce"
)

const (
	menuText         = "Please choose:"
	paymentPrompt    = "Your order was accepted!\nPlease, enter your email and our managers will contact you"
	invalidEmailText = "Please, provide correct email"
	emailAcceptedFmt = "Your email %s was accepted.\nThank you!"

	// AddedToCart is shown as a callback alert after a quantity button.
	AddedToCart = "Item was added successfully"
)

// View is one outbound message. A non-empty PhotoURL sends a photo with Text as caption.
type View struct {
	Text      string
	PhotoURL  string
	ParseMode telebot.ParseMode
	Markup    *telebot.ReplyMarkup
}

// Menu renders the product list.
func Menu(products []commerce.Product, cartHasItems bool) (View, error) {
	markup, err := keyboard.Menu(products, cartHasItems)
	if err != nil {
		return View{}, fmt.Errorf("menu keyboard: %w", err)
	}

	return View{Text: menuText, Markup: markup}, nil
}

// Product renders a product card.
func Product(product commerce.Product, imageURL string) (View, error) {
	markup, err := keyboard.Product()
	if err != nil {
		return View{}, fmt.Errorf("product keyboard: %w", err)
	}

	caption := fmt.Sprintf("%s\n%s\n\n%s per kg (available %d kg)",
		product.Name, product.Description, product.Price, product.StockLevel)

	return View{Text: caption, PhotoURL: imageURL, Markup: markup}, nil
}

// Cart renders the cart contents in HTML. Product names are not escaped.
func Cart(cart commerce.Cart) (View, error) {
	markup, err := keyboard.Cart(cart.Items)
	if err != nil {
		return View{}, fmt.Errorf("cart keyboard: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Total price: <i>%s</i></b>\n\n<b>List of items</b>:\n", cart.Total)
	for _, item := range cart.Items {
		fmt.Fprintf(&b, "%s\n<b>Price</b>: %s per kg\n<b>Ordered</b>: %dkg\n<b>Sum</b>: %s\n\n",
			item.Name, item.UnitPrice, item.Quantity, item.LinePrice)
	}

	return View{Text: b.String(), ParseMode: telebot.ModeHTML, Markup: markup}, nil
}

// PaymentPrompt asks for the customer email after checkout.
func PaymentPrompt() View {
	return View{Text: paymentPrompt}
}

// InvalidEmail asks again after an address that failed validation.
func InvalidEmail() View {
	return View{Text: invalidEmailText}
}

// EmailAccepted confirms the address the customer registered with.
func EmailAccepted(email string) View {
	return View{Text: fmt.Sprintf(emailAcceptedFmt, email)}
}
