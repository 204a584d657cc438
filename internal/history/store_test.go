package history

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/tinnova-pe/cotizador/internal/quote"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTestStore(t)

	entries := []Entry{
		{Number: "PF-0001", PDFURL: "https://api.example.test/proformas/PF-0001.pdf", Client: "ACME", Currency: "S/", TaxPercent: 18, LineCount: 2, PricedTotal: 550, IssuedBy: "ventas@tinnova.pe", IssuedAt: "2026-08-30T10:00:00Z"},
		{Number: "PF-0002", PDFURL: "https://api.example.test/proformas/PF-0002.pdf", Client: "Globex", Currency: "USD", TaxPercent: 18, LineCount: 1, PricedTotal: 120, IssuedAt: "2026-08-31T09:00:00Z"},
	}
	for _, e := range entries {
		if err := s.Record(e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].Number != "PF-0002" {
		t.Fatalf("newest first expected, got %s", got[0].Number)
	}
	if got[1].IssuedBy != "ventas@tinnova.pe" {
		t.Fatalf("issuedBy=%q", got[1].IssuedBy)
	}
}

func TestRecordReplacesSameNumber(t *testing.T) {
	s := openTestStore(t)

	if err := s.Record(Entry{Number: "PF-0001", PDFURL: "old", Client: "ACME", Currency: "S/", TaxPercent: 18, LineCount: 1, PricedTotal: 10, IssuedAt: "2026-08-30T10:00:00Z"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(Entry{Number: "PF-0001", PDFURL: "new", Client: "ACME", Currency: "S/", TaxPercent: 18, LineCount: 3, PricedTotal: 99, IssuedAt: "2026-08-30T11:00:00Z"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].PDFURL != "new" || got[0].LineCount != 3 {
		t.Fatalf("entry not replaced: %+v", got[0])
	}
}

func TestExportQuoteXLSX(t *testing.T) {
	price := 5.5
	q := quote.New()
	q.Meta.Client = "ACME S.A.C."
	q.Cart.Lines = []quote.CartLine{
		{ID: "l1", SourceKey: "tumbler-001.jpg", Quantity: 100, Description: "Vaso térmico", UnitPrice: &price},
		{ID: "l2", SourceKey: "custom-1.jpg", Quantity: 10, Description: "Llavero", IsCustom: true, CustomRef: "custom-1.jpg"},
	}
	q.SetCheckoutResult(quote.CheckoutResult{PDFURL: "x", Number: "PF-0042"})

	out := filepath.Join(t.TempDir(), "quote.xlsx")
	if err := ExportQuoteXLSX(q, out); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)

	if v, _ := f.GetCellValue(sheet, "B2"); v != "tumbler-001.jpg" {
		t.Fatalf("B2=%q", v)
	}
	if v, _ := f.GetCellValue(sheet, "G2"); v != "550" {
		t.Fatalf("G2=%q", v)
	}
	if v, _ := f.GetCellValue(sheet, "C3"); v != "TRUE" {
		t.Fatalf("C3=%q", v)
	}
}
