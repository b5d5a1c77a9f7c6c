package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/edgard/lovebot/internal/domain/model"
)

type fakeHistory struct {
	msgs []model.Message
	err  error
}

func (f fakeHistory) History(context.Context, string, int) ([]model.Message, error) {
	return f.msgs, f.err
}

func TestHistoryWritesOldestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := fakeHistory{msgs: []model.Message{
		{ID: "m2", SenderID: "bob", Content: "second", Timestamp: base.Add(time.Minute)},
		{ID: "m1", SenderID: "alice", Content: "first", Timestamp: base, ExternalID: "SM1"},
	}}

	var buf bytes.Buffer
	n, err := History(context.Background(), store, "g1", 10, &buf)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "Timestamp" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "first" || rows[1][4] != "SM1" {
		t.Errorf("first data row = %v", rows[1])
	}
	if rows[2][2] != "second" {
		t.Errorf("second data row = %v", rows[2])
	}
	if rows[1][0] != "2024-05-01T12:00:00Z" {
		t.Errorf("timestamp cell = %q", rows[1][0])
	}
}

func TestHistoryStoreError(t *testing.T) {
	var buf bytes.Buffer
	if _, err := History(context.Background(), fakeHistory{err: errors.New("down")}, "g1", 10, &buf); err == nil {
		t.Error("History() should fail when the store fails")
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written on failure")
	}
}
