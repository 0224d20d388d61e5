package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Index columns.
const (
	indexColID       = "id"
	indexColName     = "name"
	indexColType     = "type"
	indexColMessages = "messages"
)

// Index is the set of known media. It is safe for concurrent use and can be
// reloaded from its backing file.
type Index struct {
	mu    sync.RWMutex
	path  string
	media []MediaDescriptor
	byID  map[int64]MediaDescriptor
}

// NewIndex builds an in-memory index with no backing file.
func NewIndex(descs ...MediaDescriptor) *Index {
	ix := &Index{}
	ix.set(descs)
	return ix
}

// LoadIndex reads the index CSV at path. Relative table paths are resolved
// against the directory of the index file.
func LoadIndex(path string) (*Index, error) {
	ix := &Index{path: path}
	if err := ix.Reload(); err != nil {
		return nil, err
	}
	return ix, nil
}

// Reload re-reads the backing file. It is a no-op for in-memory indexes.
func (ix *Index) Reload() error {
	if ix.path == "" {
		return nil
	}

	f, err := os.Open(ix.path)
	if err != nil {
		return fmt.Errorf("failed to open media index: %w", err)
	}
	defer f.Close()

	descs, err := ReadIndex(f)
	if err != nil {
		return fmt.Errorf("failed to read media index %s: %w", ix.path, err)
	}

	dir := filepath.Dir(ix.path)
	for i := range descs {
		if descs[i].Source != "" && !filepath.IsAbs(descs[i].Source) {
			descs[i].Source = filepath.Join(dir, descs[i].Source)
		}
	}

	ix.set(descs)
	return nil
}

func (ix *Index) set(descs []MediaDescriptor) {
	byID := make(map[int64]MediaDescriptor, len(descs))
	for _, d := range descs {
		byID[d.ID] = d
	}

	ix.mu.Lock()
	ix.media = slices.Clone(descs)
	ix.byID = byID
	ix.mu.Unlock()
}

// Lookup returns the descriptor for id or an error wrapping ErrUnknownMedia.
func (ix *Index) Lookup(id int64) (MediaDescriptor, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	d, ok := ix.byID[id]
	if !ok {
		return MediaDescriptor{}, fmt.Errorf("%w: %d", ErrUnknownMedia, id)
	}
	return d, nil
}

// All returns every descriptor in index order.
func (ix *Index) All() []MediaDescriptor {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return slices.Clone(ix.media)
}

// Len returns the number of indexed media.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.media)
}

// ReadIndex decodes an index CSV. Columns are located by header name, so a
// leading row-number column is ignored.
func ReadIndex(r io.Reader) ([]MediaDescriptor, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	cols := columnIndex(header)
	for _, name := range []string{indexColID, indexColName, indexColType, indexColMessages} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var descs []MediaDescriptor
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		id, err := parseID(field(row, cols, indexColID))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid id: %w", line, err)
		}
		kind, err := ParseMediaKind(field(row, cols, indexColType))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		descs = append(descs, MediaDescriptor{
			ID:     id,
			Name:   field(row, cols, indexColName),
			Kind:   kind,
			Source: field(row, cols, indexColMessages),
		})
	}

	return descs, nil
}

// WriteIndex encodes descs as an index CSV.
func WriteIndex(w io.Writer, descs []MediaDescriptor) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{indexColID, indexColName, indexColType, indexColMessages}); err != nil {
		return err
	}
	for _, d := range descs {
		if err := cw.Write([]string{strconv.FormatInt(d.ID, 10), d.Name, string(d.Kind), d.Source}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return cols
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseID accepts integers and the "123.0" form produced for nullable
// integer columns. The empty string parses as 0.
func parseID(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
