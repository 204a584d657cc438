package quote

import (
	"strings"

	errx "github.com/tinnova-pe/cotizador/internal/core/error"
)

const (
	MsgEmptyCart   = "add at least one item to the cart"
	MsgEmptyClient = "client name is required"
)

// Quote is the whole per-user quotation state, one explicit struct per
// functional area. The cart survives image changes and searches; only the
// search area resets when the image changes.
type Quote struct {
	ImageName string          `json:"imageName,omitempty"`
	Search    SearchState     `json:"search"`
	Cart      Cart            `json:"cart"`
	Meta      ClientMeta      `json:"meta"`
	Checkout  *CheckoutResult `json:"checkout,omitempty"`
}

// New returns an empty quote with the commercial defaults applied.
func New() *Quote {
	return &Quote{
		Search: SearchState{Phase: SearchIdle},
		Meta: ClientMeta{
			TaxPercent: DefaultTaxPercent,
			Currency:   DefaultCurrency,
		},
	}
}

// SelectImage replaces the staged image reference. Any previous search
// results and seeded descriptions are discarded unconditionally: stale
// matches must never be attachable to a different image. The cart is
// untouched. An empty name clears the selection.
func (q *Quote) SelectImage(name string) {
	q.ImageName = name
	q.Search.Reset()
}

// BeginSearch validates the precondition (an image must be staged) and
// marks a new search as the current one. No network is involved here; the
// caller performs the backend call and reports back with the returned
// generation token.
func (q *Quote) BeginSearch() (uint64, error) {
	if strings.TrimSpace(q.ImageName) == "" {
		return 0, errx.Validation(MsgSelectImage)
	}
	return q.Search.Begin(), nil
}

// AddMatchToCart commits the result with the given catalog key to the
// cart, using the possibly edited description seeded for it.
func (q *Quote) AddMatchToCart(filename string, quantity float64, override *float64) (CartLine, error) {
	match, ok := q.Search.MatchByFilename(filename)
	if !ok {
		return CartLine{}, errx.Validation(MsgUnknownResult)
	}
	return q.Cart.AddFromMatch(match, quantity, override, q.Search.DescriptionFor(match))
}

// SetMeta replaces the client metadata. The tax rate is taken as given,
// zero included; callers resolve an omitted rate to the default before
// calling, since a blank string already marks the currency as omitted
// but a float has no such sentinel.
func (q *Quote) SetMeta(meta ClientMeta) {
	if strings.TrimSpace(meta.Currency) == "" {
		meta.Currency = DefaultCurrency
	}
	q.Meta = meta
}

// ValidateForProforma checks the submission preconditions: a non-empty
// cart and a non-empty client name. Nothing is sent when it fails.
func (q *Quote) ValidateForProforma() error {
	if q.Cart.IsEmpty() {
		return errx.Validation(MsgEmptyCart)
	}
	if strings.TrimSpace(q.Meta.Client) == "" {
		return errx.Validation(MsgEmptyClient)
	}
	return nil
}

// SetCheckoutResult stores a successful generation outcome. The cart is
// deliberately kept: the user may adjust and regenerate.
func (q *Quote) SetCheckoutResult(res CheckoutResult) {
	q.Checkout = &res
}
