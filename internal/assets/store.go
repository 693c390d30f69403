package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/unmask-labs/certmint/internal/adapter"
	"github.com/unmask-labs/certmint/internal/domain"
)

// imageExtensions and videoExtensions are the recognized upload extensions.
// Anything else is rejected with ErrUnsupportedMediaType.
var (
	imageExtensions = map[string]bool{
		"jpg": true, "jpeg": true, "png": true, "gif": true,
		"bmp": true, "webp": true, "tiff": true,
	}
	videoExtensions = map[string]bool{
		"mp4": true, "mov": true, "avi": true, "mkv": true, "webm": true,
	}
)

// Store is the filesystem-backed uploaded asset store. Assets are addressed
// by the generated identifier returned from Save.
//
//go:generate mockgen -source=store.go -destination=../mocks/assets.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// Save classifies and stores an uploaded file, returning its asset id.
	// Stored names follow {clientAddress}_{uid}.{jpg|mp4}: images are always
	// filed under .jpg and videos under .mp4 regardless of original extension.
	Save(clientAddress, originalFilename string, r io.Reader) (string, error)

	// Open opens a stored asset for reading
	Open(id string) (adapter.ReadFile, error)

	// Path returns the filesystem path of a stored asset, verifying it exists
	Path(id string) (string, error)

	// Digest computes the hex SHA-256 digest of a stored asset
	Digest(id string) (string, error)
}

type localStore struct {
	root string
	fs   adapter.FileSystem
}

// NewLocalStore creates an asset store rooted at the given directory,
// creating it if needed.
func NewLocalStore(root string, fs adapter.FileSystem) (Store, error) {
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset root: %w", err)
	}
	return &localStore{root: root, fs: fs}, nil
}

// Save classifies and stores an uploaded file, returning its asset id
func (s *localStore) Save(clientAddress, originalFilename string, r io.Reader) (string, error) {
	kind, err := classifyExtension(originalFilename)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	// The extension decides the category; the sniffed content type backs it
	// up so a renamed binary cannot pass as media.
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") && !strings.HasPrefix(mtype.String(), "video/") {
		return "", fmt.Errorf("%w: content type %s", domain.ErrUnsupportedMediaType, mtype.String())
	}

	var ext string
	switch kind {
	case domain.MediaKindImage:
		ext = "jpg"
	case domain.MediaKindVideo:
		ext = "mp4"
	}

	id := fmt.Sprintf("%s_%s.%s", clientAddress, uuid.NewString(), ext)

	f, err := s.fs.Create(filepath.Join(s.root, id))
	if err != nil {
		return "", fmt.Errorf("failed to create asset file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write asset file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close asset file: %w", err)
	}

	return id, nil
}

// Open opens a stored asset for reading
func (s *localStore) Open(id string) (adapter.ReadFile, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotFound, id)
	}
	return f, nil
}

// Path returns the filesystem path of a stored asset, verifying it exists
func (s *localStore) Path(id string) (string, error) {
	// Asset ids are generated by Save; reject anything that could escape the root.
	if id == "" || id != filepath.Base(id) {
		return "", fmt.Errorf("%w: %s", domain.ErrAssetNotFound, id)
	}
	path := filepath.Join(s.root, id)
	if _, err := s.fs.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrAssetNotFound, id)
	}
	return path, nil
}

// Digest computes the hex SHA-256 digest of a stored asset
func (s *localStore) Digest(id string) (string, error) {
	f, err := s.Open(id)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash asset: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// classifyExtension maps a filename to its media kind by extension
func classifyExtension(filename string) (domain.MediaKind, error) {
	parts := strings.Split(filename, ".")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: missing extension", domain.ErrUnsupportedMediaType)
	}
	ext := strings.ToLower(parts[len(parts)-1])

	switch {
	case imageExtensions[ext]:
		return domain.MediaKindImage, nil
	case videoExtensions[ext]:
		return domain.MediaKindVideo, nil
	default:
		return "", fmt.Errorf("%w: .%s", domain.ErrUnsupportedMediaType, ext)
	}
}
