package quote

import (
	"math"
	"strings"

	"github.com/google/uuid"

	errx "github.com/tinnova-pe/cotizador/internal/core/error"
)

const (
	MsgInvalidQuantity  = "quantity must be greater than zero"
	MsgInvalidUnitPrice = "unit price must be zero or greater"
	MsgEmptyDescription = "description is required"
	MsgEmptyCustomRef   = "custom image reference is required"
	MsgLineNotFound     = "cart line not found"
)

// Cart is the ordered collection of quoted line items. It persists across
// searches; only an explicit removal takes a line out. Identical products
// added twice yield two independent lines.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

func validQuantity(q float64) bool {
	return !math.IsNaN(q) && !math.IsInf(q, 0) && q > 0
}

func validUnitPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p >= 0
}

// AddFromMatch appends a line derived from a search result. The resolved
// unit price is the override when given, else the match's estimated price,
// else absent (the backend prices the line at generation time).
func (c *Cart) AddFromMatch(match SimilarMatch, quantity float64, override *float64, description string) (CartLine, error) {
	if !validQuantity(quantity) {
		return CartLine{}, errx.Validation(MsgInvalidQuantity)
	}
	if override != nil && !validUnitPrice(*override) {
		return CartLine{}, errx.Validation(MsgInvalidUnitPrice)
	}

	price := override
	if price == nil && match.EstimatedUnitPrice != nil {
		v := *match.EstimatedUnitPrice
		price = &v
	}

	line := CartLine{
		ID:          uuid.NewString(),
		SourceKey:   match.Filename,
		Quantity:    quantity,
		Description: strings.TrimSpace(description),
		UnitPrice:   price,
	}
	c.Lines = append(c.Lines, line)
	return line, nil
}

// AddCustom appends a line backed by a user-uploaded image. The reference
// must be a durable name already issued by the backend.
func (c *Cart) AddCustom(customRef string, quantity, unitPrice float64, description string) (CartLine, error) {
	if strings.TrimSpace(description) == "" {
		return CartLine{}, errx.Validation(MsgEmptyDescription)
	}
	if !validQuantity(quantity) {
		return CartLine{}, errx.Validation(MsgInvalidQuantity)
	}
	if !validUnitPrice(unitPrice) {
		return CartLine{}, errx.Validation(MsgInvalidUnitPrice)
	}
	if strings.TrimSpace(customRef) == "" {
		return CartLine{}, errx.Validation(MsgEmptyCustomRef)
	}

	price := unitPrice
	line := CartLine{
		ID:          uuid.NewString(),
		SourceKey:   customRef,
		Quantity:    quantity,
		Description: strings.TrimSpace(description),
		UnitPrice:   &price,
		IsCustom:    true,
		CustomRef:   customRef,
	}
	c.Lines = append(c.Lines, line)
	return line, nil
}

// ValidateCustomInput checks the user-entered fields of a custom item
// before the image upload happens, so a rejected form never touches the
// network or the cart.
func ValidateCustomInput(description string, quantity, unitPrice float64) error {
	if strings.TrimSpace(description) == "" {
		return errx.Validation(MsgEmptyDescription)
	}
	if !validQuantity(quantity) {
		return errx.Validation(MsgInvalidQuantity)
	}
	if !validUnitPrice(unitPrice) {
		return errx.Validation(MsgInvalidUnitPrice)
	}
	return nil
}

// LineUpdate is a partial in-place edit of one cart line. A nil field is
// left untouched; ClearUnitPrice drops the override so the backend decides
// the price again.
type LineUpdate struct {
	Description    *string  `json:"description,omitempty"`
	Quantity       *float64 `json:"quantity,omitempty"`
	UnitPrice      *float64 `json:"unitPrice,omitempty"`
	ClearUnitPrice bool     `json:"clearUnitPrice,omitempty"`
}

// UpdateLine applies upd to the line with the given ID. Fields are
// re-validated; an invalid update rejects as a whole and the line keeps
// its previous state.
func (c *Cart) UpdateLine(id string, upd LineUpdate) (CartLine, error) {
	idx := c.indexOf(id)
	if idx < 0 {
		return CartLine{}, errx.Validation(MsgLineNotFound)
	}

	if upd.Quantity != nil && !validQuantity(*upd.Quantity) {
		return CartLine{}, errx.Validation(MsgInvalidQuantity)
	}
	if upd.UnitPrice != nil && !validUnitPrice(*upd.UnitPrice) {
		return CartLine{}, errx.Validation(MsgInvalidUnitPrice)
	}
	if upd.Description != nil && c.Lines[idx].IsCustom && strings.TrimSpace(*upd.Description) == "" {
		return CartLine{}, errx.Validation(MsgEmptyDescription)
	}

	line := &c.Lines[idx]
	if upd.Description != nil {
		line.Description = *upd.Description
	}
	if upd.Quantity != nil {
		line.Quantity = *upd.Quantity
	}
	switch {
	case upd.ClearUnitPrice:
		line.UnitPrice = nil
	case upd.UnitPrice != nil:
		v := *upd.UnitPrice
		line.UnitPrice = &v
	}
	return *line, nil
}

// RemoveLine removes exactly one line; the relative order of the remaining
// lines is preserved.
func (c *Cart) RemoveLine(id string) error {
	idx := c.indexOf(id)
	if idx < 0 {
		return errx.Validation(MsgLineNotFound)
	}
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	return nil
}

func (c *Cart) indexOf(id string) int {
	for i := range c.Lines {
		if c.Lines[i].ID == id {
			return i
		}
	}
	return -1
}

// IsEmpty reports whether the cart holds no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// PricedTotal sums quantity times unit price over the lines that carry a
// price. Unpriced lines are left to the backend and excluded here.
func (c *Cart) PricedTotal() float64 {
	var total float64
	for _, l := range c.Lines {
		if l.UnitPrice != nil {
			total += l.Quantity * *l.UnitPrice
		}
	}
	return total
}
