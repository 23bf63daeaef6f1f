package uploads

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// URLPrefix is the public path uploaded files are served under.
const URLPrefix = "/uploads/"

var (
	ErrNotImage = errors.New("only images are allowed")
	ErrTooLarge = errors.New("file is too large")
)

// Store keeps uploaded post images on local disk.
type Store struct {
	Dir      string
	MaxBytes int64
	Log      *slog.Logger
}

func New(dir string, maxBytes int64, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{Dir: dir, MaxBytes: maxBytes, Log: log}, nil
}

// Save validates an uploaded image and writes it under a unique name,
// returning its public reference.
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	if s.MaxBytes > 0 && fh.Size > s.MaxBytes {
		return "", ErrTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrNotImage
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	// The extension follows the sniffed type; the client's filename is ignored.
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), mt.Extension())

	dst, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return URLPrefix + name, nil
}

// Remove deletes the file behind ref. References outside URLPrefix are
// ignored; failures are logged and not returned.
func (s *Store) Remove(ref *string) {
	if ref == nil || !strings.HasPrefix(*ref, URLPrefix) {
		return
	}
	name := path.Base(*ref)
	if name == "." || name == "/" || name == ".." {
		return
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil {
		s.Log.Warn("remove upload", "ref", *ref, "error", err)
	}
}
