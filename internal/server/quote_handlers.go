package server

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tinnova-pe/cotizador/internal/auth"
	"github.com/tinnova-pe/cotizador/internal/backend"
	errx "github.com/tinnova-pe/cotizador/internal/core/error"
	"github.com/tinnova-pe/cotizador/internal/history"
	"github.com/tinnova-pe/cotizador/internal/quote"
	logx "github.com/tinnova-pe/cotizador/pkg/logger"
)

// MsgImageRequired rejects an image upload without a file part.
const MsgImageRequired = "image file is required"

func (s *Server) userID(c *gin.Context) string {
	user, _ := auth.UserFrom(c)
	return user.ID
}

func (s *Server) loadQuote(c *gin.Context) (*quote.Quote, bool) {
	q, err := s.quotes.Load(c.Request.Context(), s.userID(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return q, true
}

func (s *Server) saveQuote(c *gin.Context, q *quote.Quote) bool {
	if err := s.quotes.Save(c.Request.Context(), s.userID(c), q); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

func (s *Server) getQuote(c *gin.Context) {
	q, ok := s.loadQuote(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) stageImage(c *gin.Context) {
	file, err := c.FormFile("imagen")
	if err != nil {
		respondError(c, errx.Validation(MsgImageRequired))
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, errx.Validation(MsgImageRequired))
		return
	}
	defer src.Close()

	if err := s.intake.Stage(s.userID(c), src); err != nil {
		respondError(c, err)
		return
	}

	q, ok := s.loadQuote(c)
	if !ok {
		return
	}
	q.SelectImage(file.Filename)
	if !s.saveQuote(c, q) {
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) clearImage(c *gin.Context) {
	s.intake.Clear(s.userID(c))

	q, ok := s.loadQuote(c)
	if !ok {
		return
	}
	q.SelectImage("")
	if !s.saveQuote(c, q) {
		return
	}
	c.JSON(http.StatusOK, q)
}

type searchRequest struct {
	TopK int `json:"top_k"`
}

func (s *Server) search(c *gin.Context) {
	uid := s.userID(c)

	var req searchRequest
	_ = c.ShouldBindJSON(&req)

	image, err := s.intake.Read(uid)
	if err != nil {
		respondError(c, err)
		return
	}

	q, ok := s.loadQuote(c)
	if !ok {
		return
	}
	gen, err := q.BeginSearch()
	if err != nil {
		respondError(c, err)
		return
	}

	key := uid + ":search"
	if !s.inflight.tryAcquire(key) {
		c.JSON(http.StatusConflict, gin.H{"error": MsgBusy})
		return
	}
	defer s.inflight.release(key)

	if !s.saveQuote(c, q) {
		return
	}

	matches, searchErr := s.backend.SearchSimilar(c.Request.Context(), q.ImageName, image, req.TopK)

	// Reload before applying: the image may have changed while the call
	// was in flight, in which case the bumped generation drops this
	// result instead of attaching stale matches to a different image.
	q, ok = s.loadQuote(c)
	if !ok {
		return
	}
	if searchErr != nil {
		logx.Error().Err(searchErr).Str("userID", uid).Msg("similarity search failed")
		q.Search.Fail(gen)
	} else {
		q.Search.ApplyResults(gen, matches)
	}
	if !s.saveQuote(c, q) {
		return
	}
	c.JSON(http.StatusOK, q)
}

type descriptionRequest struct {
	Description string `json:"description"`
}

func (s *Server) editResultDescription(c *gin.Context) {
	var req descriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errx.Validation(quote.MsgUnknownResult))
		return
	}

	q, ok := s.loadQuote(c)
	if !ok {
		return
	}
	if err := q.Search.SetDescription(c.Param("filename"), req.Description); err != nil {
		respondError(c, err)
		return
	}
	if !s.saveQuote(c, q) {
		return
	}
	c.JSON(http.StatusOK, q)
}

type addFromMatchRequest struct {
	Filename  string   `json:"filename"`
	Quantity  float64  `json:"quantity"`
	UnitPrice *float64 `json:"unit_price"`
}

func (s *Server) addFromMatch(c *gin.Context) {
	var req addFromMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errx.Validation(quote.MsgInvalidQuantity))
		return
	}

	q, ok := s.loadQuote(c)
	if !ok {
		return
	}
	line, err := q.AddMatchToCart(req.Filename, req.Quantity, req.UnitPrice)
	if err != nil {
		respondError(c, err)
		return
	}
	if !s.saveQuote(c, q) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"line": line, "quote": q})
}

type addCustomRequest struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

func (s *Server) addCustom(c *gin.Context) {
	uid := s.userID(c)

	var req addCustomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errx.Validation(quote.MsgEmptyDescription))
		return
	}
	// reject locally before any upload happens
	if err := quote.ValidateCustomInput(req.Description, req.Quantity, req.UnitPrice); err != nil {
		respondError(c, err)
		return
	}

	image, err := s.intake.Read(uid)
	if err != nil {
		respondError(c, err)
		return
	}

	key := uid + ":custom"
	if !s.inflight.tryAcquire(key) {
		c.JSON(http.StatusConflict, gin.H{"error": MsgBusy})
		return
	}
	defer s.inflight.release(key)

	q, ok := s.loadQuote(c)
	if !ok {
		return
	}

	uploaded, err := s.backend.UploadCustom(c.Request.Context(), q.ImageName, image)
	if err != nil {
		// atomic: the cart is untouched unless the upload yielded a ref
		respondError(c, err)
		return
	}

	// Reload before mutating: saving the pre-upload snapshot would
	// overwrite anything changed while the upload was in flight.
	q, ok = s.loadQuote(c)
	if !ok {
		return
	}
	line, err := q.Cart.AddCustom(uploaded.Filename, req.Quantity, req.UnitPrice, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	if !s.saveQuote(c, q) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"line": line, "quote": q})
}

func (s *Server) updateLine(c *gin.Context) {
	var upd quote.LineUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		respondError(c, errx.Validation(quote.MsgLineNotFound))
		return
	}

	q, ok := s.loadQuote(c)
	if !ok {
		return
	}
	line, err := q.Cart.UpdateLine(c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	if !s.saveQuote(c, q) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"line": line, "quote": q})
}

func (s *Server) removeLine(c *gin.Context) {
	q, ok := s.loadQuote(c)
	if !ok {
		return
	}
	if err := q.Cart.RemoveLine(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	if !s.saveQuote(c, q) {
		return
	}
	c.JSON(http.StatusOK, q)
}

// clientMetaRequest mirrors quote.ClientMeta with a pointer tax rate so
// an omitted rate is distinguishable from an explicit 0%.
type clientMetaRequest struct {
	Client         string   `json:"client"`
	Contact        string   `json:"contact"`
	TaxID          string   `json:"taxId"`
	Address        string   `json:"address"`
	Date           string   `json:"date"`
	ProductionTime string   `json:"productionTime"`
	PaymentTerms   string   `json:"paymentTerms"`
	Delivery       string   `json:"delivery"`
	Remarks        string   `json:"remarks"`
	TaxPercent     *float64 `json:"taxPercent"`
	Currency       string   `json:"currency"`
	QuotedBy       string   `json:"quotedBy"`
}

func (s *Server) setClientMeta(c *gin.Context) {
	var req clientMetaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errx.Validation(quote.MsgEmptyClient))
		return
	}

	meta := quote.ClientMeta{
		Client:         req.Client,
		Contact:        req.Contact,
		TaxID:          req.TaxID,
		Address:        req.Address,
		Date:           req.Date,
		ProductionTime: req.ProductionTime,
		PaymentTerms:   req.PaymentTerms,
		Delivery:       req.Delivery,
		Remarks:        req.Remarks,
		TaxPercent:     quote.DefaultTaxPercent,
		Currency:       req.Currency,
		QuotedBy:       req.QuotedBy,
	}
	if req.TaxPercent != nil {
		meta.TaxPercent = *req.TaxPercent
	}

	q, ok := s.loadQuote(c)
	if !ok {
		return
	}
	q.SetMeta(meta)
	if !s.saveQuote(c, q) {
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) generateProforma(c *gin.Context) {
	uid := s.userID(c)

	q, ok := s.loadQuote(c)
	if !ok {
		return
	}
	if err := q.ValidateForProforma(); err != nil {
		respondError(c, err)
		return
	}

	key := uid + ":proforma"
	if !s.inflight.tryAcquire(key) {
		c.JSON(http.StatusConflict, gin.H{"error": MsgBusy})
		return
	}
	defer s.inflight.release(key)

	// The history entry describes what was actually generated, so it is
	// built from the submitted snapshot, not the reloaded state.
	submitted := *q
	req := backend.NewProformaRequest(q.Meta, q.Cart.Lines)
	result, err := s.backend.GenerateProforma(c.Request.Context(), req)
	if err != nil {
		// cart and metadata stay exactly as they were
		respondError(c, err)
		return
	}

	// Reload before mutating, same as the other backend calls.
	q, ok = s.loadQuote(c)
	if !ok {
		return
	}
	q.SetCheckoutResult(result)
	if !s.saveQuote(c, q) {
		return
	}

	user, _ := auth.UserFrom(c)
	if err := s.history.Record(history.Entry{
		Number:      result.Number,
		PDFURL:      result.PDFURL,
		Client:      submitted.Meta.Client,
		Currency:    submitted.Meta.Currency,
		TaxPercent:  submitted.Meta.TaxPercent,
		LineCount:   len(submitted.Cart.Lines),
		PricedTotal: submitted.Cart.PricedTotal(),
		IssuedBy:    user.Email,
	}); err != nil {
		logx.Warn().Err(err).Str("numero", result.Number).Msg("failed to record proforma locally")
	}

	c.JSON(http.StatusOK, gin.H{"pdfUrl": result.PDFURL, "number": result.Number, "quote": q})
}

func (s *Server) listProformas(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := s.history.List(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proformas": entries})
}

func (s *Server) exportQuote(c *gin.Context) {
	q, ok := s.loadQuote(c)
	if !ok {
		return
	}
	if q.Cart.IsEmpty() {
		respondError(c, errx.Validation(quote.MsgEmptyCart))
		return
	}

	path := filepath.Join(s.cfg.ExportDir, "cotizacion-"+s.userID(c)+".xlsx")
	if err := history.ExportQuoteXLSX(q, path); err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, "cotizacion.xlsx")
}
