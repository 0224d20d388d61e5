package corpus_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/edgard/telellmgram/internal/corpus"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReadTable(t *testing.T) {
	t.Parallel()

	const table = "message_id,raw_text,cleaned_text,sender_name,sender_id,time,date,reactions,links,hashtags,reply_to_message_id\n" +
		"10,raw,سلام دوستان,Alice,user1,08:30:00,15/06/23,👍:3,,,\n" +
		"11,raw,جواب,Bob,user2,09:00:00,bad,,,,10.0\n"

	records, err := corpus.ReadTable(strings.NewReader(table))
	if err != nil {
		t.Fatalf("ReadTable() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ReadTable() returned %d records, want 2", len(records))
	}

	first := records[0]
	if first.ID != 10 || first.Text != "سلام دوستان" || first.Reactions != "👍:3" || first.SenderID != "user1" {
		t.Errorf("first record = %+v", first)
	}
	if want := time.Date(2023, time.June, 15, 8, 30, 0, 0, time.UTC); !first.Timestamp.Equal(want) {
		t.Errorf("first timestamp = %v, want %v", first.Timestamp, want)
	}

	second := records[1]
	if second.HasTimestamp() {
		t.Errorf("unparseable date should leave a zero timestamp, got %v", second.Timestamp)
	}
	if second.ReplyToID != 10 {
		t.Errorf("ReplyToID = %d, want 10", second.ReplyToID)
	}
}

func TestReadTableMissingColumn(t *testing.T) {
	t.Parallel()

	if _, err := corpus.ReadTable(strings.NewReader("id,text\n1,x\n")); err == nil {
		t.Error("expected error for table without message_id/cleaned_text")
	}
}

func TestWriteTableIsReadable(t *testing.T) {
	t.Parallel()

	rows := []corpus.Row{
		{
			MessageRecord: corpus.MessageRecord{
				ID:        7,
				Text:      "متن تمیز",
				Timestamp: time.Date(2024, time.March, 2, 10, 11, 12, 0, time.UTC),
				Reactions: "❤:2",
			},
			RawText: "متن تمیز #برچسب",
			Links:   []string{"https://example.com"},
		},
	}

	var buf bytes.Buffer
	if err := corpus.WriteTable(&buf, corpus.Channel, rows); err != nil {
		t.Fatalf("WriteTable() error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "message_id,raw_text,cleaned_text,time,date,reactions,links,hashtags\n") {
		t.Errorf("unexpected channel header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	got, err := corpus.ReadTable(&buf)
	if err != nil {
		t.Fatalf("ReadTable() error: %v", err)
	}
	if !reflect.DeepEqual(got, []corpus.MessageRecord{rows[0].MessageRecord}) {
		t.Errorf("ReadTable() = %+v, want %+v", got, rows[0].MessageRecord)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestCSVStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "1c.csv"),
		"message_id,raw_text,cleaned_text,time,date,reactions,links,hashtags\n"+
			"1,a,الف,10:00:00,01/01/23,,,\n"+
			"2,b,ب,11:00:00,02/01/23,,,\n")
	// Leading unnamed column as written by dataframe exports.
	writeFile(t, filepath.Join(dir, "index.csv"),
		",id,name,type,messages\n0,-100123,News,channel,1c.csv\n")

	index, err := corpus.LoadIndex(filepath.Join(dir, "index.csv"))
	if err != nil {
		t.Fatalf("LoadIndex() error: %v", err)
	}

	desc, err := index.Lookup(-100123)
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if desc.Name != "News" || desc.Kind != corpus.Channel || desc.Source != filepath.Join(dir, "1c.csv") {
		t.Errorf("descriptor = %+v", desc)
	}

	store := corpus.NewCSVStore(index, discardLogger())
	records, err := store.RecordsFor(context.Background(), -100123)
	if err != nil {
		t.Fatalf("RecordsFor() error: %v", err)
	}
	if !reflect.DeepEqual(ids(records), []int64{1, 2}) {
		t.Errorf("RecordsFor ids = %v, want [1 2]", ids(records))
	}

	if _, err := store.RecordsFor(context.Background(), 42); !errors.Is(err, corpus.ErrUnknownMedia) {
		t.Errorf("unknown media: got %v, want ErrUnknownMedia", err)
	}
}

func TestIndexReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "index.csv")
	writeFile(t, path, "id,name,type,messages\n1,A,channel,1c.csv\n")

	index, err := corpus.LoadIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if index.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", index.Len())
	}

	writeFile(t, path, "id,name,type,messages\n1,A,channel,1c.csv\n2,B,group,2g.csv\n")
	if err := index.Reload(); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if _, err := index.Lookup(2); err != nil {
		t.Errorf("Lookup(2) after reload: %v", err)
	}

	var buf bytes.Buffer
	if err := corpus.WriteIndex(&buf, index.All()); err != nil {
		t.Fatal(err)
	}
	reread, err := corpus.ReadIndex(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(reread) != 2 || reread[1].Kind != corpus.Group {
		t.Errorf("ReadIndex(WriteIndex()) = %+v", reread)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	index := corpus.NewIndex(corpus.MediaDescriptor{ID: 1, Name: "A", Kind: corpus.Group})
	store := corpus.NewMemoryStore(index, map[int64][]corpus.MessageRecord{
		1: {{ID: 5}},
		2: {{ID: 6}},
	})

	got, err := store.RecordsFor(context.Background(), 1)
	if err != nil || len(got) != 1 {
		t.Errorf("RecordsFor(1) = %v, %v", got, err)
	}
	if _, err := store.RecordsFor(context.Background(), 2); !errors.Is(err, corpus.ErrUnknownMedia) {
		t.Errorf("RecordsFor(2) not indexed: got %v, want ErrUnknownMedia", err)
	}
}

func TestCSVStoreReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	table := filepath.Join(dir, "1c.csv")
	header := "message_id,cleaned_text,date,time,reactions\n"
	writeFile(t, table, header+"1,الف,01/01/23,10:00:00,\n")
	writeFile(t, filepath.Join(dir, "index.csv"), "id,name,type,messages\n1,A,channel,1c.csv\n")

	index, err := corpus.LoadIndex(filepath.Join(dir, "index.csv"))
	if err != nil {
		t.Fatal(err)
	}
	store := corpus.NewCSVStore(index, discardLogger())

	count := func() int {
		t.Helper()
		records, err := store.RecordsFor(context.Background(), 1)
		if err != nil {
			t.Fatalf("RecordsFor() error: %v", err)
		}
		return len(records)
	}

	if got := count(); got != 1 {
		t.Fatalf("records = %d, want 1", got)
	}

	writeFile(t, table, header+"1,الف,01/01/23,10:00:00,\n2,ب,02/01/23,11:00:00,\n")
	if got := count(); got != 1 {
		t.Errorf("records before reload = %d, want cached 1", got)
	}

	if err := store.Reload(); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if got := count(); got != 2 {
		t.Errorf("records after reload = %d, want 2", got)
	}
}
