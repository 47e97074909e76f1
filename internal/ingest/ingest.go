// Package ingest stages cookbook index page scans for upload.
package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Accepted content types.
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypePDF  = "application/pdf"
)

// DefaultMaxFiles bounds a single staging call when no limit is configured.
const DefaultMaxFiles = 50

var (
	ErrNoFiles         = errors.New("no files provided")
	ErrTooManyFiles    = errors.New("too many files")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// File is one staged index page scan. Pages is 1 for images and the
// document page count for PDFs.
type File struct {
	Path        string
	Name        string
	ContentType string
	Size        int64
	Pages       int

	data []byte
}

// Open returns a reader over the file content.
func (f File) Open() (io.ReadCloser, error) {
	if f.data != nil {
		return io.NopCloser(bytes.NewReader(f.data)), nil
	}
	return os.Open(f.Path)
}

// Options configures Stage.
type Options struct {
	MaxFiles int
	Logger   *slog.Logger
}

// Stage validates paths and returns them as staged files, ordered by
// numeric suffix (index-2.jpg before index-10.jpg).
func Stage(paths []string, opts Options) ([]File, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}

	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	if len(paths) > maxFiles {
		return nil, fmt.Errorf("%w: %d staged, limit is %d", ErrTooManyFiles, len(paths), maxFiles)
	}

	sorted := SortByNumber(paths)
	files := make([]File, 0, len(sorted))
	for _, p := range sorted {
		f, err := StageFile(p)
		if err != nil {
			return nil, err
		}
		log.Debug("staged file", "file", f.Name, "type", f.ContentType, "pages", f.Pages)
		files = append(files, f)
	}

	log.Info("staged index pages", "files", len(files), "pages", TotalPages(files))
	return files, nil
}

// StageFile validates a single file on disk.
func StageFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("file not found: %s", path)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	fh, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer fh.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(fh, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	name := filepath.Base(path)
	contentType, err := Sniff(name, head[:n])
	if err != nil {
		return File{}, err
	}

	pages := 1
	if contentType == ContentTypePDF {
		if _, err := fh.Seek(0, io.SeekStart); err != nil {
			return File{}, fmt.Errorf("failed to rewind %s: %w", path, err)
		}
		pages, err = PageCount(fh)
		if err != nil {
			return File{}, fmt.Errorf("failed to read %s: %w", name, err)
		}
	}

	return File{
		Path:        path,
		Name:        name,
		ContentType: contentType,
		Size:        info.Size(),
		Pages:       pages,
	}, nil
}

// NewFile stages in-memory content, as received from an upload.
func NewFile(name string, data []byte) (File, error) {
	contentType, err := Sniff(name, data)
	if err != nil {
		return File{}, err
	}

	pages := 1
	if contentType == ContentTypePDF {
		pages, err = PageCount(bytes.NewReader(data))
		if err != nil {
			return File{}, fmt.Errorf("failed to read %s: %w", name, err)
		}
	}

	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Pages:       pages,
		data:        data,
	}, nil
}

// Sniff detects the content type from the leading bytes and rejects
// anything that is not JPEG, PNG or PDF.
func Sniff(name string, head []byte) (string, error) {
	contentType := http.DetectContentType(head)
	switch contentType {
	case ContentTypeJPEG, ContentTypePNG, ContentTypePDF:
		return contentType, nil
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, name, contentType)
}

// PageCount returns the number of pages in a PDF document.
func PageCount(rs io.ReadSeeker) (int, error) {
	n, err := api.PageCount(rs, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// TotalPages sums the pages of all files.
func TotalPages(files []File) int {
	total := 0
	for _, f := range files {
		total += f.Pages
	}
	return total
}

// Fingerprint identifies a staged set so an identical set is not uploaded
// twice. File contents are hashed, so a scan replaced in place changes it.
func Fingerprint(files []File) string {
	if len(files) == 0 {
		return ""
	}
	h := sha256.New()
	for _, f := range files {
		fmt.Fprintf(h, "%s\x00%s\x00%d\x00", f.Path, f.Name, f.Size)
		rc, err := f.Open()
		if err != nil {
			fmt.Fprintf(h, "unreadable: %v\x00", err)
			continue
		}
		_, err = io.Copy(h, rc)
		rc.Close()
		if err != nil {
			fmt.Fprintf(h, "unreadable: %v\x00", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

var numberSuffix = regexp.MustCompile(`[-_](\d+)\.[A-Za-z]+$`)

// SortByNumber sorts paths by their numeric suffix.
// e.g., ["index-2.jpg", "index-1.jpg", "index-10.jpg"] -> ["index-1.jpg", "index-2.jpg", "index-10.jpg"]
func SortByNumber(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)

	sort.SliceStable(sorted, func(i, j int) bool {
		mi := numberSuffix.FindStringSubmatch(sorted[i])
		mj := numberSuffix.FindStringSubmatch(sorted[j])

		// If both have numbers, sort numerically
		if len(mi) > 1 && len(mj) > 1 {
			ni, _ := strconv.Atoi(mi[1])
			nj, _ := strconv.Atoi(mj[1])
			if ni != nj {
				return ni < nj
			}
			return sorted[i] < sorted[j]
		}

		// Files without numbers come first
		if len(mi) > 1 {
			return false
		}
		if len(mj) > 1 {
			return true
		}

		return sorted[i] < sorted[j]
	})

	return sorted
}

// DeriveTitle builds a cookbook title from a scan filename.
// e.g., "joy-of-cooking-index-1.jpg" -> "joy of cooking"
func DeriveTitle(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	name = regexp.MustCompile(`[-_]\d+$`).ReplaceAllString(name, "")
	name = regexp.MustCompile(`[-_]index$`).ReplaceAllString(name, "")
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_'
	}), " ")
}
