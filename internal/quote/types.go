package quote

// SimilarMatch is one catalog entry returned by the backend's visual
// similarity search. Matches are read-only; a new search discards the
// whole set.
type SimilarMatch struct {
	Filename             string   `json:"filename"`
	Similarity           float64  `json:"similarity"`
	ImageURL             string   `json:"imageUrl"`
	EstimatedUnitPrice   *float64 `json:"estimatedUnitPrice,omitempty"`
	SuggestedDescription *string  `json:"suggestedDescription,omitempty"`
}

// CartLine is a single quoted line item. Lines are addressed by their
// stable ID, never by position.
type CartLine struct {
	ID          string   `json:"id"`
	SourceKey   string   `json:"sourceKey"`
	Quantity    float64  `json:"quantity"`
	Description string   `json:"description"`
	UnitPrice   *float64 `json:"unitPrice,omitempty"`
	IsCustom    bool     `json:"isCustom"`
	CustomRef   string   `json:"customRef,omitempty"`
}

// ClientMeta holds the commercial header of a proforma. Only Client is
// mandatory, and only at submission time.
type ClientMeta struct {
	Client         string  `json:"client"`
	Contact        string  `json:"contact,omitempty"`
	TaxID          string  `json:"taxId,omitempty"`
	Address        string  `json:"address,omitempty"`
	Date           string  `json:"date,omitempty"`
	ProductionTime string  `json:"productionTime,omitempty"`
	PaymentTerms   string  `json:"paymentTerms,omitempty"`
	Delivery       string  `json:"delivery,omitempty"`
	Remarks        string  `json:"remarks,omitempty"`
	TaxPercent     float64 `json:"taxPercent"`
	Currency       string  `json:"currency"`
	QuotedBy       string  `json:"quotedBy,omitempty"`
}

const (
	DefaultTaxPercent = 18
	DefaultCurrency   = "S/"
)

// CheckoutResult is the outcome of a successful proforma generation.
type CheckoutResult struct {
	PDFURL string `json:"pdfUrl"`
	Number string `json:"number"`
}
