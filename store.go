package surveilans

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	extractPrefix = "jakarta_health_data_"
	mergedPrefix  = "MERGED_"
	extractExt    = ".csv"

	unknownDisease = "UnknownDisease"
)

// ExtractHeader is the column layout of every monthly and merged extract.
var ExtractHeader = []string{
	"Kabupaten/Kota",
	"Kecamatan",
	"Status Penderita",
	"Golongan Umur",
	"Jenis Kelamin",
	"Kelurahan",
	"Tanggal",
	"Jumlah Kasus",
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SafeIdentifier turns a disease name into the token used in file names:
// accents are stripped and anything outside [A-Za-z0-9_-] becomes "_".
func SafeIdentifier(name string) string {
	if name == "" {
		return unknownDisease
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, name); err == nil {
		name = stripped
	}
	return unsafeChars.ReplaceAllString(name, "_")
}

func ExtractFileName(identifier string, m Month) string {
	return fmt.Sprintf("%s%s_%s%s", extractPrefix, identifier, m, extractExt)
}

func MergedFileName(identifier string, start, end Month) string {
	return fmt.Sprintf("%s%s%s_%s_to_%s%s", mergedPrefix, extractPrefix, identifier, start, end, extractExt)
}

// Uploader copies a finished extract somewhere else, e.g. object storage.
type Uploader interface {
	Upload(ctx context.Context, path string) error
}

// ExtractSink receives the finished records of a month.
type ExtractSink interface {
	WriteMonth(ctx context.Context, identifier string, m Month, records []Record) (string, error)
}

// Store writes extracts as CSV files in one directory.
type Store struct {
	dir    string
	fs     FileSystemOperations
	mirror Uploader
	logger Logger
}

type storeOptionFunc optionFunc[*Store]

func WithStoreFileSystem(fs FileSystemOperations) storeOptionFunc {
	return func(s *Store) error {
		s.fs = fs
		return nil
	}
}

// WithMirror uploads every written file after it lands on disk.
func WithMirror(u Uploader) storeOptionFunc {
	return func(s *Store) error {
		s.mirror = u
		return nil
	}
}

func WithStoreLogger(logger Logger) storeOptionFunc {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

func NewStore(dir string, opts ...storeOptionFunc) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	s := &Store{
		dir:    dir,
		fs:     FileSystem{},
		logger: newNopLogger(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteMonth writes one monthly extract and returns its path.
func (s *Store) WriteMonth(ctx context.Context, identifier string, m Month, records []Record) (string, error) {
	path := s.Path(ExtractFileName(identifier, m))
	err := s.writeFile(ctx, path, func(w *csv.Writer) error {
		for _, r := range records {
			if err := w.Write(recordRow(r)); err != nil {
				return err
			}
		}
		return nil
	})
	return path, err
}

func recordRow(r Record) []string {
	return []string{
		r.Regency,
		r.District,
		r.Status,
		r.AgeGroup,
		r.Sex,
		r.Village,
		r.Date.Format("2006-01-02"),
		strconv.Itoa(r.Cases),
	}
}

// writeFile writes header plus body to a temporary file and renames it into
// place, so a crash never leaves a half-written extract under the final name.
func (s *Store) writeFile(ctx context.Context, path string, body func(w *csv.Writer) error) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp := path + ".part"
	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	werr := w.Write(ExtractHeader)
	if werr == nil {
		werr = body(w)
	}
	w.Flush()
	if werr == nil {
		werr = w.Error()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		if err := s.fs.Remove(tmp); err != nil {
			s.logger.Warn("Failed to remove partial extract", LogContext{"path": tmp, "err": err.Error()})
		}
		return fmt.Errorf("write %s: %w", path, werr)
	}

	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	if s.mirror != nil {
		if err := s.mirror.Upload(ctx, path); err != nil {
			s.logger.Warn("Failed to mirror extract", LogContext{"path": path, "err": err.Error()})
		}
	}
	return nil
}

// readExtract loads the rows of an extract file, checking its header.
func (s *Store) readExtract(path string) ([][]string, error) {
	f, err := s.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(ExtractHeader)

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !sameHeader(header, ExtractHeader) {
		return nil, fmt.Errorf("%s: unexpected header %v", path, header)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func (s *Store) exists(path string) bool {
	_, err := s.fs.Stat(path)
	return err == nil
}

func sameHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		g := got[i]
		if i == 0 {
			// tolerate a UTF-8 BOM written by spreadsheet tools
			g = trimBOM(g)
		}
		if g != want[i] {
			return false
		}
	}
	return true
}

func trimBOM(s string) string {
	const bom = "\ufeff"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}
