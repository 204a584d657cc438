package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/tinnova-pe/cotizador/internal/quote"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testClient(rt roundTripFunc) *Client {
	c := NewClient(Config{BaseURL: "https://api.example.test", TimeoutMs: 5000, TopK: 8})
	c.httpClient = &http.Client{Transport: rt}
	return c
}

func jsonResponse(status int, payload any) *http.Response {
	blob, _ := json.Marshal(payload)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(string(blob))),
		Header:     make(http.Header),
	}
}

func TestSearchSimilar(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/buscar-similares-imagen" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("top_k"); got != "8" {
			t.Fatalf("top_k=%q", got)
		}
		file, header, err := r.FormFile("imagen")
		if err != nil {
			t.Fatalf("imagen part missing: %v", err)
		}
		defer file.Close()
		if header.Filename != "upload.jpg" {
			t.Fatalf("filename=%q", header.Filename)
		}

		price := 5.5
		desc := "Vaso térmico"
		return jsonResponse(http.StatusOK, searchResponse{Resultados: []wireMatch{
			{Filename: "tumbler-001.jpg", Similitud: 0.92, URL: "/imagenes/tumbler-001.jpg", PrecioUnitarioEst: &price, DescripcionSugerida: &desc},
			{Filename: "tumbler-002.jpg", Similitud: 0.81, URL: "/imagenes/tumbler-002.jpg"},
		}}), nil
	})

	matches, err := client.SearchSimilar(context.Background(), "upload.jpg", []byte("img-bytes"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("len=%d", len(matches))
	}
	if matches[0].ImageURL != "https://api.example.test/imagenes/tumbler-001.jpg" {
		t.Fatalf("url not resolved: %s", matches[0].ImageURL)
	}
	if matches[0].EstimatedUnitPrice == nil || *matches[0].EstimatedUnitPrice != 5.5 {
		t.Fatalf("price=%v", matches[0].EstimatedUnitPrice)
	}
	if matches[1].EstimatedUnitPrice != nil || matches[1].SuggestedDescription != nil {
		t.Fatalf("optional fields must stay nil when the backend omits them")
	}
}

func TestSearchSimilarZeroResults(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, searchResponse{}), nil
	})

	matches, err := client.SearchSimilar(context.Background(), "u.jpg", []byte("x"), 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("len=%d", len(matches))
	}
}

func TestSearchSimilarBackendError(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("boom")),
			Header:     make(http.Header),
		}, nil
	})

	if _, err := client.SearchSimilar(context.Background(), "u.jpg", []byte("x"), 8); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestUploadCustom(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/subir-imagen-custom" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		return jsonResponse(http.StatusOK, map[string]string{
			"filename": "custom-9f2.jpg",
			"url":      "/imagenes/custom/custom-9f2.jpg",
		}), nil
	})

	img, err := client.UploadCustom(context.Background(), "mine.jpg", []byte("img"))
	if err != nil {
		t.Fatal(err)
	}
	if img.Filename != "custom-9f2.jpg" {
		t.Fatalf("filename=%q", img.Filename)
	}
	if img.URL != "https://api.example.test/imagenes/custom/custom-9f2.jpg" {
		t.Fatalf("url=%q", img.URL)
	}
}

func TestUploadCustomMissingFilename(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, map[string]string{"url": "/x.jpg"}), nil
	})

	if _, err := client.UploadCustom(context.Background(), "mine.jpg", []byte("img")); err == nil {
		t.Fatal("expected error when the backend returns no filename")
	}
}

func TestGenerateProforma(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/generar-proforma" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content-type=%q", ct)
		}
		var req ProformaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Datos.Cliente != "ACME S.A.C." {
			t.Fatalf("cliente=%q", req.Datos.Cliente)
		}
		if len(req.Items) != 1 {
			t.Fatalf("items=%d", len(req.Items))
		}
		return jsonResponse(http.StatusOK, map[string]string{
			"pdf_url": "/proformas/PF-0042.pdf",
			"numero":  "PF-0042",
		}), nil
	})

	price := 5.5
	req := NewProformaRequest(
		quote.ClientMeta{Client: "ACME S.A.C.", TaxPercent: 18, Currency: "S/"},
		[]quote.CartLine{{ID: "l1", SourceKey: "a.jpg", Quantity: 100, Description: "Vaso", UnitPrice: &price}},
	)
	res, err := client.GenerateProforma(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Number != "PF-0042" {
		t.Fatalf("numero=%q", res.Number)
	}
	if res.PDFURL != "https://api.example.test/proformas/PF-0042.pdf" {
		t.Fatalf("pdf url=%q", res.PDFURL)
	}
}

func TestGenerateProformaBackendFailure(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader("unavailable")),
			Header:     make(http.Header),
		}, nil
	})

	_, err := client.GenerateProforma(context.Background(), ProformaRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewProformaRequestOmitsBlanksAndUnsetPrices(t *testing.T) {
	req := NewProformaRequest(
		quote.ClientMeta{Client: " ACME ", Contact: "   ", TaxPercent: 18, Currency: "S/"},
		[]quote.CartLine{
			{ID: "l1", SourceKey: "a.jpg", Quantity: 10, Description: "sin precio"},
			{ID: "l2", SourceKey: "custom-1.jpg", Quantity: 5, Description: "custom", IsCustom: true, CustomRef: "custom-1.jpg", UnitPrice: func() *float64 { v := 2.5; return &v }()},
		},
	)

	blob, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	s := string(blob)
	if strings.Contains(s, `"contacto"`) {
		t.Fatalf("blank optional field must be omitted: %s", s)
	}

	if req.Datos.Cliente != "ACME" {
		t.Fatalf("cliente not trimmed: %q", req.Datos.Cliente)
	}
	if req.Items[0].PrecioUnitarioOverride != nil {
		t.Fatal("line without a held price must not carry an override")
	}
	if req.Items[1].CustomFilename != "custom-1.jpg" || !req.Items[1].IsCustom {
		t.Fatalf("custom flags wrong: %+v", req.Items[1])
	}
}
