package view

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/storefront-bot/internal/commerce"
)

func TestMenu(t *testing.T) {
	v, err := Menu([]commerce.Product{{ID: "42", Name: "Salmon"}}, false)
	require.NoError(t, err)

	assert.Equal(t, "Please choose:", v.Text)
	assert.Empty(t, v.PhotoURL)
	require.NotNil(t, v.Markup)
	assert.Len(t, v.Markup.InlineKeyboard, 1)
}

func TestProduct(t *testing.T) {
	product := commerce.Product{
		ID:          "42",
		Name:        "Salmon",
		Description: "Fresh from Norway",
		Price:       "$10.00",
		StockLevel:  17,
	}

	v, err := Product(product, "https://cdn.example/salmon.png")
	require.NoError(t, err)

	assert.Equal(t, "Salmon\nFresh from Norway\n\n$10.00 per kg (available 17 kg)", v.Text)
	assert.Equal(t, "https://cdn.example/salmon.png", v.PhotoURL)
	require.NotNil(t, v.Markup)
}

func TestCart(t *testing.T) {
	testCases := []struct {
		name     string
		cart     commerce.Cart
		expected string
		rows     int
	}{
		{
			name: "one item",
			cart: commerce.Cart{
				Total: "$50.00",
				Items: []commerce.CartItem{{
					ID:        "item-1",
					Name:      "Salmon",
					Quantity:  5,
					UnitPrice: "$10.00",
					LinePrice: "$50.00",
				}},
			},
			expected: "<b>Total price: <i>$50.00</i></b>\n\n<b>List of items</b>:\n" +
				"Salmon\n<b>Price</b>: $10.00 per kg\n<b>Ordered</b>: 5kg\n<b>Sum</b>: $50.00\n\n",
			rows: 2,
		},
		{
			name:     "empty cart",
			cart:     commerce.Cart{Total: "$0.00"},
			expected: "<b>Total price: <i>$0.00</i></b>\n\n<b>List of items</b>:\n",
			rows:     1,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			v, err := Cart(tc.cart)
			require.NoError(t, err)

			assert.Equal(t, tc.expected, v.Text)
			assert.Equal(t, telebot.ModeHTML, v.ParseMode)
			assert.Len(t, v.Markup.InlineKeyboard, tc.rows)
		})
	}
}

func TestCart_NamesAreNotEscaped(t *testing.T) {
	v, err := Cart(commerce.Cart{
		Total: "$1.00",
		Items: []commerce.CartItem{{ID: "i", Name: "Fish & <Chips>", Quantity: 1}},
	})
	require.NoError(t, err)

	assert.True(t, strings.Contains(v.Text, "Fish & <Chips>"))
}

func TestPrompts(t *testing.T) {
	assert.Equal(t, "Your order was accepted!\nPlease, enter your email and our managers will contact you", PaymentPrompt().Text)
	assert.Equal(t, "Please, provide correct email", InvalidEmail().Text)
	assert.Equal(t, "Your email a@b.co was accepted.\nThank you!", EmailAccepted("a@b.co").Text)
}
