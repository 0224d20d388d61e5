package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/edgard/telellmgram/internal/corpus"
)

// IndexFileName is the name of the media index written next to the tables.
const IndexFileName = "index.csv"

// Importer converts exports into a corpus directory.
type Importer struct {
	outDir string
	log    *slog.Logger
}

// NewImporter creates an importer writing into outDir.
func NewImporter(outDir string, log *slog.Logger) *Importer {
	return &Importer{outDir: outDir, log: log.With("component", "importer")}
}

// IndexPath returns the path of the index the importer writes.
func (im *Importer) IndexPath() string {
	return filepath.Join(im.outDir, IndexFileName)
}

// Import converts each source, an export directory or a result.json file, into
// a table named "<n><c|g>.csv" and rewrites the index with one entry per
// source. Table paths in the index are relative to outDir.
func (im *Importer) Import(ctx context.Context, sources []string) ([]corpus.MediaDescriptor, error) {
	if err := os.MkdirAll(im.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create corpus directory: %w", err)
	}

	descs := make([]corpus.MediaDescriptor, 0, len(sources))
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		im.log.InfoContext(ctx, "Importing export", "position", i+1, "total", len(sources), "source", src)
		desc, rows, err := im.importOne(src, i+1)
		if err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", src, err)
		}
		im.log.InfoContext(ctx, "Export imported", "media_id", desc.ID, "name", desc.Name, "kind", desc.Kind, "messages", rows)
		descs = append(descs, desc)
	}

	f, err := os.Create(im.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("failed to create media index: %w", err)
	}
	if err := writeAndClose(f, func(w io.Writer) error { return corpus.WriteIndex(w, descs) }); err != nil {
		return nil, fmt.Errorf("failed to write media index: %w", err)
	}

	return descs, nil
}

func (im *Importer) importOne(src string, position int) (corpus.MediaDescriptor, int, error) {
	path := src
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		path = filepath.Join(src, "result.json")
	}

	in, err := os.Open(path)
	if err != nil {
		return corpus.MediaDescriptor{}, 0, err
	}
	defer in.Close()

	chat, err := Decode(in)
	if err != nil {
		return corpus.MediaDescriptor{}, 0, err
	}
	kind, err := DetectKind(chat.Type)
	if err != nil {
		return corpus.MediaDescriptor{}, 0, err
	}

	rows := Rows(chat, kind)
	name := fmt.Sprintf("%d%s.csv", position, kind.Suffix())

	out, err := os.Create(filepath.Join(im.outDir, name))
	if err != nil {
		return corpus.MediaDescriptor{}, 0, err
	}
	if err := writeAndClose(out, func(w io.Writer) error { return corpus.WriteTable(w, kind, rows) }); err != nil {
		return corpus.MediaDescriptor{}, 0, fmt.Errorf("failed to write %s: %w", name, err)
	}

	return corpus.MediaDescriptor{ID: chat.ID, Name: chat.Name, Kind: kind, Source: name}, len(rows), nil
}

// writeAndClose runs write on f and closes it. A failed close is reported
// since it can lose buffered data.
func writeAndClose(f io.WriteCloser, write func(io.Writer) error) error {
	err := write(f)
	if closeErr := f.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close: %w", closeErr))
	}
	return err
}
