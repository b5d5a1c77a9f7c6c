// Package export writes conversation history to an Excel workbook.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/edgard/lovebot/internal/domain/model"
)

// SheetName is the worksheet holding exported messages.
const SheetName = "History"

var header = []any{"Timestamp", "Sender", "Content", "Message ID", "External ID"}

// HistoryReader returns a conversation's messages, newest first.
type HistoryReader interface {
	History(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

// History writes up to limit messages of a conversation to w as an xlsx
// workbook, oldest first. It returns the number of rows written.
func History(ctx context.Context, store HistoryReader, conversationID string, limit int, w io.Writer) (int, error) {
	msgs, err := store.History(ctx, conversationID, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load history for %s: %w", conversationID, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return 0, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "E1", bold); err != nil {
		return 0, fmt.Errorf("failed to style header: %w", err)
	}
	_ = f.SetColWidth(SheetName, "A", "A", 22)
	_ = f.SetColWidth(SheetName, "C", "C", 80)

	for i := range msgs {
		m := msgs[len(msgs)-1-i]
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		row := []any{m.Timestamp.UTC().Format(time.RFC3339), m.SenderID, m.Content, m.ID, m.ExternalID}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}
	return len(msgs), nil
}
