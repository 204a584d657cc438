package backend

import (
	"strings"

	"github.com/tinnova-pe/cotizador/internal/quote"
)

// ProformaRequest is the /generar-proforma payload. Optional header fields
// are omitted when blank rather than sent as empty strings.
type ProformaRequest struct {
	Datos ProformaData   `json:"datos"`
	Items []ProformaItem `json:"items"`
}

type ProformaData struct {
	Cliente          string  `json:"cliente"`
	Contacto         string  `json:"contacto,omitempty"`
	RUC              string  `json:"ruc,omitempty"`
	Direccion        string  `json:"direccion,omitempty"`
	Fecha            string  `json:"fecha,omitempty"`
	TiempoProduccion string  `json:"tiempo_produccion,omitempty"`
	CondicionesPago  string  `json:"condiciones_pago,omitempty"`
	Entrega          string  `json:"entrega,omitempty"`
	Observaciones    string  `json:"observaciones,omitempty"`
	IGVPorcentaje    float64 `json:"igv_porcentaje"`
	Moneda           string  `json:"moneda"`
	CotizadoPor      string  `json:"cotizado_por,omitempty"`
}

type ProformaItem struct {
	Filename               string   `json:"filename"`
	Cantidad               float64  `json:"cantidad"`
	Descripcion            string   `json:"descripcion"`
	PrecioUnitarioOverride *float64 `json:"precio_unitario_override,omitempty"`
	IsCustom               bool     `json:"is_custom"`
	CustomFilename         string   `json:"custom_filename,omitempty"`
}

// NewProformaRequest maps the quote state onto the wire shape. The unit
// price is only carried for lines where one is held; otherwise the backend
// decides the price.
func NewProformaRequest(meta quote.ClientMeta, lines []quote.CartLine) ProformaRequest {
	items := make([]ProformaItem, 0, len(lines))
	for _, l := range lines {
		item := ProformaItem{
			Filename:    l.SourceKey,
			Cantidad:    l.Quantity,
			Descripcion: l.Description,
			IsCustom:    l.IsCustom,
		}
		if l.UnitPrice != nil {
			v := *l.UnitPrice
			item.PrecioUnitarioOverride = &v
		}
		if l.IsCustom {
			item.CustomFilename = l.CustomRef
		}
		items = append(items, item)
	}

	return ProformaRequest{
		Datos: ProformaData{
			Cliente:          strings.TrimSpace(meta.Client),
			Contacto:         strings.TrimSpace(meta.Contact),
			RUC:              strings.TrimSpace(meta.TaxID),
			Direccion:        strings.TrimSpace(meta.Address),
			Fecha:            strings.TrimSpace(meta.Date),
			TiempoProduccion: strings.TrimSpace(meta.ProductionTime),
			CondicionesPago:  strings.TrimSpace(meta.PaymentTerms),
			Entrega:          strings.TrimSpace(meta.Delivery),
			Observaciones:    strings.TrimSpace(meta.Remarks),
			IGVPorcentaje:    meta.TaxPercent,
			Moneda:           meta.Currency,
			CotizadoPor:      strings.TrimSpace(meta.QuotedBy),
		},
		Items: items,
	}
}
