package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

// minimalPDF builds a small well-formed PDF with the given number of pages.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	offsets := []int{}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name    string
		head    []byte
		want    string
		wantErr bool
	}{
		{"png", pngHeader, ContentTypePNG, false},
		{"jpeg", jpegHeader, ContentTypeJPEG, false},
		{"pdf", []byte("%PDF-1.4\n"), ContentTypePDF, false},
		{"text", []byte("hello"), "", true},
		{"empty", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sniff(tt.name, tt.head)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Sniff() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedType) {
				t.Errorf("Sniff() error = %v, want ErrUnsupportedType", err)
			}
			if got != tt.want {
				t.Errorf("Sniff() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStage(t *testing.T) {
	dir := t.TempDir()
	p10 := writeFile(t, dir, "index-10.png", pngHeader)
	p2 := writeFile(t, dir, "index-2.jpg", jpegHeader)
	p1 := writeFile(t, dir, "index-1.png", pngHeader)

	files, err := Stage([]string{p10, p2, p1}, Options{})
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}

	wantNames := []string{"index-1.png", "index-2.jpg", "index-10.png"}
	for i, f := range files {
		if f.Name != wantNames[i] {
			t.Errorf("files[%d].Name = %q, want %q", i, f.Name, wantNames[i])
		}
		if f.Pages != 1 {
			t.Errorf("files[%d].Pages = %d, want 1", i, f.Pages)
		}
	}
	if files[1].ContentType != ContentTypeJPEG {
		t.Errorf("ContentType = %q, want image/jpeg", files[1].ContentType)
	}

	r, err := files[0].Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if !bytes.Equal(data, pngHeader) {
		t.Errorf("Open() content mismatch")
	}
}

func TestStage_Errors(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, dir, "notes.txt", []byte("not an image"))
	img := writeFile(t, dir, "index-1.png", pngHeader)

	tests := []struct {
		name  string
		paths []string
		opts  Options
		want  error
	}{
		{"no files", nil, Options{}, ErrNoFiles},
		{"too many", []string{img, img}, Options{MaxFiles: 1}, ErrTooManyFiles},
		{"unsupported", []string{txt}, Options{}, ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Stage(tt.paths, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("Stage() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Stage([]string{filepath.Join(dir, "missing.png")}, Options{}); err == nil {
		t.Error("Stage() should fail for a missing file")
	}
	if _, err := Stage([]string{dir}, Options{}); err == nil {
		t.Error("Stage() should fail for a directory")
	}
}

func TestStage_PDFPageCount(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "index.pdf", minimalPDF(3))
	img := writeFile(t, dir, "index-1.png", pngHeader)

	files, err := Stage([]string{pdf, img}, Options{})
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if files[0].ContentType != ContentTypePDF || files[0].Pages != 3 {
		t.Errorf("pdf staged as %+v, want 3 pages", files[0])
	}
	if got := TotalPages(files); got != 4 {
		t.Errorf("TotalPages() = %d, want 4", got)
	}
}

func TestNewFile(t *testing.T) {
	f, err := NewFile("scan.png", pngHeader)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	if f.ContentType != ContentTypePNG || f.Size != int64(len(pngHeader)) {
		t.Errorf("NewFile() = %+v", f)
	}

	pdf, err := NewFile("scan.pdf", minimalPDF(2))
	if err != nil {
		t.Fatalf("NewFile(pdf) error = %v", err)
	}
	if pdf.Pages != 2 {
		t.Errorf("Pages = %d, want 2", pdf.Pages)
	}

	if _, err := NewFile("scan.gif", []byte("GIF89a")); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("NewFile(gif) error = %v, want ErrUnsupportedType", err)
	}
}

func TestFingerprint(t *testing.T) {
	a, _ := NewFile("a.png", pngHeader)
	b, _ := NewFile("b.jpg", jpegHeader)

	if Fingerprint(nil) != "" {
		t.Error("Fingerprint(nil) should be empty")
	}
	if Fingerprint([]File{a, b}) != Fingerprint([]File{a, b}) {
		t.Error("Fingerprint() should be stable")
	}
	if Fingerprint([]File{a, b}) == Fingerprint([]File{b, a}) {
		t.Error("Fingerprint() should depend on order")
	}
	if Fingerprint([]File{a}) == Fingerprint([]File{a, b}) {
		t.Error("Fingerprint() should depend on membership")
	}
}

func TestFingerprint_ReplacedInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index-1.png")
	if err := os.WriteFile(path, append(append([]byte{}, pngHeader...), "first"...), 0o644); err != nil {
		t.Fatal(err)
	}
	before, err := StageFile(path)
	if err != nil {
		t.Fatalf("StageFile() error = %v", err)
	}
	want := Fingerprint([]File{before})

	// Same path, same size, different scan.
	if err := os.WriteFile(path, append(append([]byte{}, pngHeader...), "later"...), 0o644); err != nil {
		t.Fatal(err)
	}
	after, err := StageFile(path)
	if err != nil {
		t.Fatalf("StageFile() error = %v", err)
	}
	if after.Size != before.Size {
		t.Fatalf("size changed: %d -> %d", before.Size, after.Size)
	}
	if Fingerprint([]File{after}) == want {
		t.Error("Fingerprint() should change when the file content changes")
	}
	if Fingerprint([]File{after}) != Fingerprint([]File{after}) {
		t.Error("Fingerprint() should be stable for path-backed files")
	}
}

func TestSortByNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "already sorted",
			input:    []string{"index-1.jpg", "index-2.jpg", "index-3.jpg"},
			expected: []string{"index-1.jpg", "index-2.jpg", "index-3.jpg"},
		},
		{
			name:     "mixed with double digits",
			input:    []string{"index-10.png", "index-2.png", "index-1.png"},
			expected: []string{"index-1.png", "index-2.png", "index-10.png"},
		},
		{
			name:     "underscore separators",
			input:    []string{"page_3.jpg", "page_1.jpg"},
			expected: []string{"page_1.jpg", "page_3.jpg"},
		},
		{
			name:     "numbered and unnumbered",
			input:    []string{"index-2.jpg", "index.pdf", "index-1.jpg"},
			expected: []string{"index.pdf", "index-1.jpg", "index-2.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SortByNumber(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("length mismatch: got %d, want %d", len(result), len(tt.expected))
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("index %d: got %q, want %q", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/scans/joy-of-cooking-index-1.jpg", "joy of cooking"},
		{"/scans/the_silver_spoon-10.png", "the silver spoon"},
		{"essentials.pdf", "essentials"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DeriveTitle(tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
