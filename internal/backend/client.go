package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	errx "github.com/tinnova-pe/cotizador/internal/core/error"
	"github.com/tinnova-pe/cotizador/internal/quote"
)

// Config holds the quotation backend connection settings.
type Config struct {
	BaseURL   string `envconfig:"BACKEND_BASE_URL" default:"https://api.tinnova.pe"`
	TimeoutMs int    `envconfig:"BACKEND_TIMEOUT_MS" default:"30000"`
	TopK      int    `envconfig:"BACKEND_SEARCH_TOP_K" default:"8"`
}

// Client talks to the quotation backend: visual similarity search, custom
// image upload and proforma generation. Failures are never retried; every
// retry is a new explicit user action.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
	}
}

type wireMatch struct {
	Filename            string   `json:"filename"`
	Similitud           float64  `json:"similitud"`
	URL                 string   `json:"url"`
	PrecioUnitarioEst   *float64 `json:"precio_unitario_estimado"`
	DescripcionSugerida *string  `json:"descripcion_sugerida"`
}

type searchResponse struct {
	Resultados []wireMatch `json:"resultados"`
}

// SearchSimilar posts the staged image and returns the ranked catalog
// matches. Zero matches is a valid outcome, not an error. Image URLs come
// back as backend-relative paths and are resolved here.
func (c *Client) SearchSimilar(ctx context.Context, filename string, image []byte, topK int) ([]quote.SimilarMatch, error) {
	if topK <= 0 {
		topK = c.cfg.TopK
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("imagen", filename)
	if err != nil {
		return nil, errx.WrapBackend(err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, errx.WrapBackend(err)
	}
	if err := w.WriteField("top_k", strconv.Itoa(topK)); err != nil {
		return nil, errx.WrapBackend(err)
	}
	if err := w.Close(); err != nil {
		return nil, errx.WrapBackend(err)
	}

	raw, err := c.post(ctx, "/buscar-similares-imagen", w.FormDataContentType(), &body)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errx.WrapBackend(err)
	}

	matches := make([]quote.SimilarMatch, 0, len(resp.Resultados))
	for _, m := range resp.Resultados {
		matches = append(matches, quote.SimilarMatch{
			Filename:             m.Filename,
			Similarity:           m.Similitud,
			ImageURL:             c.ResolveURL(m.URL),
			EstimatedUnitPrice:   m.PrecioUnitarioEst,
			SuggestedDescription: m.DescripcionSugerida,
		})
	}
	return matches, nil
}

// CustomImage is the durable reference the backend issues for an uploaded
// image that is not in the catalog.
type CustomImage struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// UploadCustom stores the user's own image on the backend and returns its
// durable filename/URL pair.
func (c *Client) UploadCustom(ctx context.Context, filename string, image []byte) (CustomImage, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("imagen", filename)
	if err != nil {
		return CustomImage{}, errx.WrapBackend(err)
	}
	if _, err := part.Write(image); err != nil {
		return CustomImage{}, errx.WrapBackend(err)
	}
	if err := w.Close(); err != nil {
		return CustomImage{}, errx.WrapBackend(err)
	}

	raw, err := c.post(ctx, "/subir-imagen-custom", w.FormDataContentType(), &body)
	if err != nil {
		return CustomImage{}, err
	}

	var out CustomImage
	if err := json.Unmarshal(raw, &out); err != nil {
		return CustomImage{}, errx.WrapBackend(err)
	}
	if strings.TrimSpace(out.Filename) == "" {
		return CustomImage{}, errx.WrapBackend(fmt.Errorf("backend returned no filename"))
	}
	out.URL = c.ResolveURL(out.URL)
	return out, nil
}

type proformaResponse struct {
	PDFURL string `json:"pdf_url"`
	Numero string `json:"numero"`
}

// GenerateProforma posts the assembled request and returns the document
// link (resolved against the base address) and number.
func (c *Client) GenerateProforma(ctx context.Context, req ProformaRequest) (quote.CheckoutResult, error) {
	blob, err := json.Marshal(req)
	if err != nil {
		return quote.CheckoutResult{}, errx.WrapBackend(err)
	}

	raw, err := c.post(ctx, "/generar-proforma", "application/json", bytes.NewReader(blob))
	if err != nil {
		return quote.CheckoutResult{}, err
	}

	var resp proformaResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return quote.CheckoutResult{}, errx.WrapBackend(err)
	}
	if strings.TrimSpace(resp.Numero) == "" {
		return quote.CheckoutResult{}, errx.WrapBackend(fmt.Errorf("backend returned no proforma number"))
	}
	return quote.CheckoutResult{
		PDFURL: c.ResolveURL(resp.PDFURL),
		Number: resp.Numero,
	}, nil
}

func (c *Client) post(ctx context.Context, endpoint, contentType string, body io.Reader) ([]byte, error) {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, errx.WrapBackend(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errx.WrapBackend(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errx.WrapBackend(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errx.WrapBackend(fmt.Errorf("backend status %d: %s", resp.StatusCode, truncate(raw, 512)))
	}
	return raw, nil
}

// ResolveURL makes a backend-relative path absolute. Already absolute URLs
// pass through untouched.
func (c *Client) ResolveURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
