package intake

import (
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	errx "github.com/tinnova-pe/cotizador/internal/core/error"
	"github.com/tinnova-pe/cotizador/internal/quote"
	logx "github.com/tinnova-pe/cotizador/pkg/logger"
)

// Config holds the staged-upload settings.
type Config struct {
	Dir         string `envconfig:"INTAKE_DIR" default:"data/uploads"`
	MaxEdge     int    `envconfig:"INTAKE_MAX_EDGE" default:"1600"`
	JPEGQuality int    `envconfig:"INTAKE_JPEG_QUALITY" default:"85"`
}

// MsgBadImage rejects uploads that do not decode as an image.
const MsgBadImage = "unsupported or corrupt image file"

// Store keeps at most one staged image per user on disk. Replacing the
// staged image releases the previous file; the rename makes the swap
// atomic so a failed decode never destroys the current one.
type Store struct {
	cfg Config
}

func NewStore(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{cfg: cfg}, nil
}

func (s *Store) path(userID string) string {
	return filepath.Join(s.cfg.Dir, userID+".jpg")
}

// Stage validates and normalises an upload, then installs it as the
// user's staged image. Oversized images are bounded to the configured
// edge so backend payloads stay small; everything is re-encoded as JPEG.
func (s *Store) Stage(userID string, r io.Reader) error {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return errx.Validation(MsgBadImage)
	}

	bounds := img.Bounds()
	if bounds.Dx() > s.cfg.MaxEdge || bounds.Dy() > s.cfg.MaxEdge {
		img = imaging.Fit(img, s.cfg.MaxEdge, s.cfg.MaxEdge, imaging.Lanczos)
	}

	dst := s.path(userID)
	// imaging.Save picks the encoder from the extension, so the temp
	// file must keep one.
	tmp := dst + ".tmp.jpg"
	if err := imaging.Save(img, tmp, imaging.JPEGQuality(s.cfg.JPEGQuality)); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Read returns the staged image bytes. A missing file reads as "no image
// selected" so callers reject the dependent operation locally.
func (s *Store) Read(userID string) ([]byte, error) {
	raw, err := os.ReadFile(s.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errx.Validation(quote.MsgSelectImage)
		}
		return nil, err
	}
	return raw, nil
}

// Clear releases the user's staged image. Clearing an empty slot is a
// no-op.
func (s *Store) Clear(userID string) {
	if err := os.Remove(s.path(userID)); err != nil && !os.IsNotExist(err) {
		logx.Warn().Err(err).Str("userID", userID).Msg("failed to remove staged image")
	}
}
