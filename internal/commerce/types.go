package commerce

// Product is a catalog entry as shown to the customer.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       string
	StockLevel  int
	MainImageID string
}

// Cart is the live cart of one chat. It is never cached locally.
type Cart struct {
	Total string
	Items []CartItem
}

// CartItem is one line of a cart. ID is the cart item id, not the product id.
type CartItem struct {
	ID          string
	ProductID   string
	Name        string
	Description string
	Quantity    int
	UnitPrice   string
	LinePrice   string
}

// Token is the cached bearer credential.
type Token struct {
	AccessToken string `json:"access_token" validate:"required"`
	Expires     int64  `json:"expires" validate:"required"`
}

// Wire formats. Required fields are enforced on decode.

type formattedPrice struct {
	Formatted string `json:"formatted" validate:"required"`
}

type relationshipRef struct {
	ID string `json:"id" validate:"required"`
}

type productData struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Meta        struct {
		DisplayPrice struct {
			WithTax formattedPrice `json:"with_tax"`
		} `json:"display_price"`
		Stock struct {
			Level int `json:"level"`
		} `json:"stock"`
	} `json:"meta"`
	Relationships struct {
		MainImage struct {
			Data *relationshipRef `json:"data"`
		} `json:"main_image"`
	} `json:"relationships"`
}

func (p productData) toProduct() Product {
	product := Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Meta.DisplayPrice.WithTax.Formatted,
		StockLevel:  p.Meta.Stock.Level,
	}
	if p.Relationships.MainImage.Data != nil {
		product.MainImageID = p.Relationships.MainImage.Data.ID
	}
	return product
}

type productsResponse struct {
	Data []productData `json:"data" validate:"dive"`
}

type productResponse struct {
	Data productData `json:"data"`
}

type fileResponse struct {
	Data struct {
		Link struct {
			Href string `json:"href" validate:"required"`
		} `json:"link"`
	} `json:"data"`
}

type cartItemData struct {
	ID          string `json:"id" validate:"required"`
	ProductID   string `json:"product_id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Meta        struct {
		DisplayPrice struct {
			WithTax struct {
				Unit  formattedPrice `json:"unit"`
				Value formattedPrice `json:"value"`
			} `json:"with_tax"`
		} `json:"display_price"`
	} `json:"meta"`
}

type cartResponse struct {
	Data []cartItemData `json:"data" validate:"dive"`
	Meta struct {
		DisplayPrice struct {
			WithTax formattedPrice `json:"with_tax"`
		} `json:"display_price"`
	} `json:"meta"`
}

func (r cartResponse) toCart() Cart {
	cart := Cart{
		Total: r.Meta.DisplayPrice.WithTax.Formatted,
		Items: make([]CartItem, 0, len(r.Data)),
	}
	for _, item := range r.Data {
		cart.Items = append(cart.Items, CartItem{
			ID:          item.ID,
			ProductID:   item.ProductID,
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.Meta.DisplayPrice.WithTax.Unit.Formatted,
			LinePrice:   item.Meta.DisplayPrice.WithTax.Value.Formatted,
		})
	}
	return cart
}

type cartItemRequest struct {
	Data struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Quantity int    `json:"quantity"`
	} `json:"data"`
}

type customerRequest struct {
	Data struct {
		Type  string `json:"type"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"data"`
}
