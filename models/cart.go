package models

import "time"

// CartItem is a single line in a shopper's cart. UnitPrice is snapshotted
// when the item is added and never refreshed from the catalog.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	ImageRef  string  `json:"image_ref,omitempty"`
}

// Cart holds the line items for one shopper session.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Subtotal returns the sum of unit price times quantity across all lines.
func (c *Cart) Subtotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// ItemCount returns the total quantity across all lines.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// AddItemRequest is the payload for adding an item to the cart.
type AddItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	ImageRef  string  `json:"image_ref"`
}

// UpdateQuantityRequest is the payload for changing a line's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}
