package services

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize int64 = 5 << 20

// imageDir is where post images live, relative to the media root.
const imageDir = "posts"

var (
	allowedImageTypes = map[string]bool{
		"image/gif":  true,
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
	}
	unsafeFilenameChars = regexp.MustCompile(`[^-\w.]`)
)

// MediaStore saves uploaded images below a root directory.
type MediaStore struct {
	root string
}

// NewMediaStore creates a MediaStore rooted at root.
func NewMediaStore(root string) *MediaStore {
	return &MediaStore{root: root}
}

// Root returns the directory uploads are stored in.
func (m *MediaStore) Root() string {
	return m.root
}

// Validate checks that fh holds a decodable image of an allowed type and size. The returned
// message is meant for the form field; it is empty when the file is acceptable.
func (m *MediaStore) Validate(fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxImageSize {
		return fmt.Sprintf("Image %s exceeds the upload size limit of %dMB.", fh.Filename, MaxImageSize>>20), nil
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if !allowedImageTypes[http.DetectContentType(head[:n])] {
		return "Upload a valid image. The file you uploaded was either not an image or a corrupted image.", nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	if _, _, err := image.DecodeConfig(f); err != nil {
		return "Upload a valid image. The file you uploaded was either not an image or a corrupted image.", nil
	}
	return "", nil
}

// Save writes fh under <root>/posts and returns the stored path relative to the root, e.g.
// posts/cat.gif. A taken name gets a short random suffix.
func (m *MediaStore) Save(fh *multipart.FileHeader) (string, error) {
	dir := filepath.Join(m.root, imageDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media directory: %w", err)
	}

	name := validFilename(fh.Filename)
	dst, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if os.IsExist(err) {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + uuid.NewString()[:7] + ext
		dst, err = os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer dst.Close()

	src, err := fh.Open()
	if err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	written, err := io.Copy(dst, &io.LimitedReader{R: src, N: MaxImageSize + 1})
	if err == nil && written > MaxImageSize {
		err = fmt.Errorf("upload exceeds %d bytes", MaxImageSize)
	}
	if err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write media file: %w", err)
	}
	return path.Join(imageDir, name), nil
}

// Remove deletes a previously saved file. Missing files are ignored.
func (m *MediaStore) Remove(rel string) {
	if rel == "" {
		return
	}
	_ = os.Remove(filepath.Join(m.root, filepath.FromSlash(rel)))
}

func validFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	if name == "" || name == "." || name == ".." {
		name = "image_" + uuid.NewString()[:8]
	}
	return name
}
