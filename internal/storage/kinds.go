package storage

import (
	"errors"
	"fmt"
	"mime"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const mb = 1 << 20

var (
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmpty           = errors.New("empty file")
)

// Kind describes one class of upload: where it lives and what it may contain.
type Kind struct {
	Name    string
	Prefix  string
	MaxSize int64
	Types   []string
}

var (
	PaperPDF  = Kind{Name: "paper", Prefix: "papers", MaxSize: 8 * mb, Types: []string{"application/pdf"}}
	Avatar    = Kind{Name: "avatar", Prefix: "avatars", MaxSize: 4 * mb, Types: imageTypes}
	PostMedia = Kind{Name: "post_image", Prefix: "posts", MaxSize: 8 * mb, Types: imageTypes}
)

var imageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// MaxPostImages bounds a single post image upload request.
const MaxPostImages = 4

// Check validates size and content type against the kind's limits.
func (k Kind) Check(size int64, contentType string) error {
	if size <= 0 {
		return ErrEmpty
	}
	if size > k.MaxSize {
		return fmt.Errorf("%w: %s uploads are limited to %d MB", ErrTooLarge, k.Name, k.MaxSize/mb)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	for _, t := range k.Types {
		if t == mediaType {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
}

// NewKey returns a fresh object key under the owner's directory of the
// kind's prefix: <prefix>/<owner>/<uuid><ext>.
func (k Kind) NewKey(owner int, contentType string) string {
	return path.Join(k.OwnerPrefix(owner), uuid.NewString()+extension(contentType))
}

// OwnerPrefix is the directory holding owner's objects of this kind,
// with a trailing slash.
func (k Kind) OwnerPrefix(owner int) string {
	return k.Prefix + "/" + strconv.Itoa(owner) + "/"
}

// OwnedBy reports whether key was issued by NewKey for owner.
func (k Kind) OwnedBy(key string, owner int) bool {
	rest, ok := strings.CutPrefix(key, k.OwnerPrefix(owner))
	return ok && owner > 0 && rest != "" && !strings.Contains(rest, "/") && path.Clean(key) == key
}

func extension(contentType string) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	if i := strings.IndexByte(mediaType, '/'); i >= 0 {
		return "." + mediaType[i+1:]
	}
	return ""
}
