package domain

// CartItem is one line of a cart. Name and Price are snapshots taken from
// the catalog at the moment the item is added, so later catalog edits do not
// change a cart that is already in progress.
type CartItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Cart holds the items a user has picked but not yet ordered. It is owned by
// exactly one session and is not safe for concurrent use on its own; the
// session store serializes access.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Upsert adds the item or, when a line for the same product already exists,
// replaces that line in place keeping its position.
func (c *Cart) Upsert(item CartItem) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i] = item
			return
		}
	}
	c.Items = append(c.Items, item)
}

// Remove deletes the line for productID. Removing an absent product is a no-op.
func (c *Cart) Remove(productID int64) {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// Contains reports whether a line for productID exists.
func (c *Cart) Contains(productID int64) bool {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

func (c *Cart) Clear() {
	c.Items = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Total is always recomputed from the snapshot lines, never cached.
func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}
