package history

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/tinnova-pe/cotizador/internal/quote"
)

// ExportQuoteXLSX writes the current quote to a worksheet: one row per
// cart line plus the commercial header and the subtotal of priced lines.
func ExportQuoteXLSX(q *quote.Quote, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line", "source", "custom", "description", "quantity", "unit_price", "line_total",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for i, l := range q.Cart.Lines {
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, value)
		}
		set(1, i+1)
		set(2, l.SourceKey)
		set(3, l.IsCustom)
		set(4, l.Description)
		set(5, l.Quantity)
		if l.UnitPrice != nil {
			set(6, *l.UnitPrice)
			set(7, l.Quantity**l.UnitPrice)
		} else {
			set(6, "")
			set(7, "")
		}
		row++
	}

	row++
	meta := [][2]any{
		{"client", q.Meta.Client},
		{"currency", q.Meta.Currency},
		{"tax_percent", q.Meta.TaxPercent},
		{"priced_subtotal", q.Cart.PricedTotal()},
	}
	if q.Checkout != nil {
		meta = append(meta, [2]any{"proforma", q.Checkout.Number})
	}
	for _, kv := range meta {
		keyCell, _ := excelize.CoordinatesToCellName(1, row)
		valCell, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(sheet, keyCell, kv[0])
		_ = f.SetCellValue(sheet, valCell, kv[1])
		row++
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
