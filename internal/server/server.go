package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinnova-pe/cotizador/internal/auth"
	"github.com/tinnova-pe/cotizador/internal/backend"
	errx "github.com/tinnova-pe/cotizador/internal/core/error"
	"github.com/tinnova-pe/cotizador/internal/history"
	"github.com/tinnova-pe/cotizador/internal/intake"
	"github.com/tinnova-pe/cotizador/internal/quote"
	"github.com/tinnova-pe/cotizador/internal/quote/repo"
	logx "github.com/tinnova-pe/cotizador/pkg/logger"
)

// Config holds the HTTP surface settings.
type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	ExportDir string `envconfig:"EXPORT_DIR" default:"out"`
}

const (
	// LoginPath is the public login surface.
	LoginPath = "/login"
	// AppPath is the guarded quotation screen, the default post-login
	// destination.
	AppPath = "/app"
)

// BackendClient is the slice of the quotation backend the handlers use.
type BackendClient interface {
	SearchSimilar(ctx context.Context, filename string, image []byte, topK int) ([]quote.SimilarMatch, error)
	UploadCustom(ctx context.Context, filename string, image []byte) (backend.CustomImage, error)
	GenerateProforma(ctx context.Context, req backend.ProformaRequest) (quote.CheckoutResult, error)
}

var _ BackendClient = (*backend.Client)(nil)

// Server wires the quotation workflow onto gin routes.
type Server struct {
	cfg      Config
	provider auth.Provider
	backend  BackendClient
	quotes   repo.QuoteRepository
	intake   *intake.Store
	history  *history.Store
	inflight *inflightLatch
}

func New(cfg Config, provider auth.Provider, backendClient BackendClient, quotes repo.QuoteRepository, intakeStore *intake.Store, historyStore *history.Store) *Server {
	return &Server{
		cfg:      cfg,
		provider: provider,
		backend:  backendClient,
		quotes:   quotes,
		intake:   intakeStore,
		history:  historyStore,
		inflight: newInflightLatch(),
	}
}

// Router builds the route tree. Everything under the guard requires a
// live provider session.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/", func(c *gin.Context) { c.Redirect(303, AppPath) })
	r.GET(LoginPath, s.loginPage)
	r.POST("/api/login", s.login)
	r.POST("/api/logout", s.logout)

	guarded := r.Group("/", auth.Guard(s.provider, LoginPath))
	guarded.GET(AppPath, s.getQuote)

	api := guarded.Group("/api")
	{
		api.GET("/quote", s.getQuote)
		api.POST("/quote/image", s.stageImage)
		api.DELETE("/quote/image", s.clearImage)
		api.POST("/quote/search", s.search)
		api.PUT("/quote/results/:filename/description", s.editResultDescription)
		api.POST("/quote/cart", s.addFromMatch)
		api.POST("/quote/cart/custom", s.addCustom)
		api.PATCH("/quote/cart/:id", s.updateLine)
		api.DELETE("/quote/cart/:id", s.removeLine)
		api.PUT("/quote/client", s.setClientMeta)
		api.POST("/quote/proforma", s.generateProforma)
		api.GET("/quote/export", s.exportQuote)
		api.GET("/proformas", s.listProformas)
	}

	return r
}

func respondError(c *gin.Context, err error) {
	status := errx.StatusOf(err)
	if status >= 500 {
		logx.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": errx.MessageOf(err)})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logx.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
