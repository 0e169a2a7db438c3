package keyboard

import (
	"fmt"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/storefront-bot/internal/commerce"
)

// Fixed callback payloads.
const (
	DataCart = "cart"
	DataBack = "back"
	DataPay  = "pay"
)

// Quantities offered on the product card, in kilograms.
var Quantities = []int{1, 5, 10}

// Menu lists every product and, when the cart is not empty, a CART button.
func Menu(products []commerce.Product, cartHasItems bool) (*telebot.ReplyMarkup, error) {
	builder := NewInlineKeyboard()
	for _, product := range products {
		builder.AddRow(InlineButton{Text: product.Name, Data: product.ID})
	}

	if cartHasItems {
		builder.AddRow(InlineButton{Text: "CART", Data: DataCart})
	}

	return builder.Build()
}

// Product offers the quantity choices and a way back to the menu.
func Product() (*telebot.ReplyMarkup, error) {
	row := make([]InlineButton, 0, len(Quantities))
	for _, qty := range Quantities {
		value := strconv.Itoa(qty)
		row = append(row, InlineButton{Text: value + "kg", Data: value})
	}

	return NewInlineKeyboard().
		AddRow(row...).
		AddRow(InlineButton{Text: "Back", Data: DataBack}).
		Build()
}

// Cart offers checkout, a way back and one removal button per item.
func Cart(items []commerce.CartItem) (*telebot.ReplyMarkup, error) {
	builder := NewInlineKeyboard().AddRow(
		InlineButton{Text: "PAY", Data: DataPay},
		InlineButton{Text: "BACK", Data: DataBack},
	)

	for _, item := range items {
		builder.AddRow(InlineButton{
			Text: fmt.Sprintf("Remove %s (%dkg)", item.Name, item.Quantity),
			Data: item.ID,
		})
	}

	return builder.Build()
}
