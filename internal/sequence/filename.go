package sequence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	bulkMarker          = "BULK"
	defaultMaxAttempts  = 20
	fileSequenceDigits  = 3
	reservedPermissions = 0o644
)

var ErrNameExhausted = errors.New("could not reserve a unique file name")

// ErrReservedCode is returned for a branch code that would share the bulk
// export file prefix.
var ErrReservedCode = errors.New("branch code is reserved for bulk exports")

// Reservation is an output file that has been created empty and belongs to
// the caller. Stem has no extension so sibling files can share it.
type Reservation struct {
	Dir  string
	Stem string
	Name string
	Path string
	Seq  int
}

// SiblingPath returns the path of a companion file sharing the stem.
func (r *Reservation) SiblingPath(ext string) string {
	return filepath.Join(r.Dir, r.Stem+ext)
}

// Release removes the reserved file. Used when rendering fails.
func (r *Reservation) Release() error {
	if err := os.Remove(r.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// FileNamer allocates {bank}_{branch}_{YYYYMMDD}_NNN names in one directory.
type FileNamer struct {
	dir         string
	loc         *time.Location
	maxAttempts int
}

func NewFileNamer(dir string, loc *time.Location) *FileNamer {
	if loc == nil {
		loc = time.Local
	}
	return &FileNamer{dir: dir, loc: loc, maxAttempts: defaultMaxAttempts}
}

func (f *FileNamer) Dir() string {
	return f.dir
}

// ReserveReport reserves the next PDF name for a single report. A branch
// code equal to the bulk marker, in any case, is refused.
func (f *FileNamer) ReserveReport(bankCode, branchCode string, day time.Time) (*Reservation, error) {
	if strings.EqualFold(sanitize(branchCode), bulkMarker) {
		return nil, fmt.Errorf("%w: %q", ErrReservedCode, branchCode)
	}
	return f.reserve(f.prefix(bankCode, branchCode, day), ".pdf")
}

// ReserveBulk reserves the next name for a per-bank bulk export.
func (f *FileNamer) ReserveBulk(bankCode string, day time.Time, ext string) (*Reservation, error) {
	return f.reserve(f.prefix(bankCode, bulkMarker, day), ext)
}

func (f *FileNamer) prefix(a, b string, day time.Time) string {
	return fmt.Sprintf("%s_%s_%s_", sanitize(a), sanitize(b), day.In(f.loc).Format("20060102"))
}

// reserve scans for the highest used sequence and claims max+1 with O_EXCL.
// A concurrent writer taking the same name sends us back to rescan.
func (f *FileNamer) reserve(prefix, ext string) (*Reservation, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		next, err := f.highest(prefix)
		if err != nil {
			return nil, err
		}
		next++

		stem := fmt.Sprintf("%s%0*d", prefix, fileSequenceDigits, next)
		name := stem + ext
		path := filepath.Join(f.dir, name)

		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, reservedPermissions)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return nil, fmt.Errorf("reserve %s: %w", name, err)
		}
		if err := file.Close(); err != nil {
			return nil, fmt.Errorf("reserve %s: %w", name, err)
		}

		return &Reservation{Dir: f.dir, Stem: stem, Name: name, Path: path, Seq: next}, nil
	}

	return nil, fmt.Errorf("%w: prefix %s after %d attempts", ErrNameExhausted, prefix, f.maxAttempts)
}

func (f *FileNamer) highest(prefix string) (int, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("scan output dir: %w", err)
	}

	top := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		if dot := strings.IndexByte(rest, '.'); dot >= 0 {
			rest = rest[:dot]
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > top {
			top = n
		}
	}
	return top, nil
}

// sanitize keeps codes from escaping the output directory or breaking the
// underscore-separated layout.
func sanitize(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "NA"
	}
	var b strings.Builder
	for _, r := range code {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
