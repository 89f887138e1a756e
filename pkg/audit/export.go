package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportFormat represents the format for exporting an activity feed
type ExportFormat string

const (
	ExportFormatJSON   ExportFormat = "json"
	ExportFormatCSV    ExportFormat = "csv"
	ExportFormatNDJSON ExportFormat = "ndjson" // Newline-delimited JSON
)

// ParseExportFormat validates a requested format, defaulting to JSON
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case "", ExportFormatJSON:
		return ExportFormatJSON, nil
	case ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatNDJSON:
		return ExportFormatNDJSON, nil
	}
	return "", fmt.Errorf("unsupported export format: %q", s)
}

// ContentType returns the MIME type for the format
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatCSV:
		return "text/csv"
	case ExportFormatNDJSON:
		return "application/x-ndjson"
	default:
		return "application/json"
	}
}

// Export writes feed items to w in the given format
func Export(w io.Writer, items []*FeedItem, format ExportFormat) error {
	switch format {
	case ExportFormatCSV:
		return exportCSV(w, items)
	case ExportFormatNDJSON:
		return exportNDJSON(w, items)
	default:
		return exportJSON(w, items)
	}
}

func exportJSON(w io.Writer, items []*FeedItem) error {
	if items == nil {
		items = []*FeedItem{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func exportNDJSON(w io.Writer, items []*FeedItem) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("failed to encode activity: %w", err)
		}
	}
	return nil
}

func exportCSV(w io.Writer, items []*FeedItem) error {
	writer := csv.NewWriter(w)

	header := []string{"ID", "CreatedAt", "Action", "UserID", "UserName", "UserEmail", "ResourceType", "ResourceID", "Message"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, item := range items {
		row := []string{
			strconv.FormatInt(item.ID, 10),
			item.CreatedAt.UTC().Format(time.RFC3339),
			string(item.Action),
			strconv.FormatInt(item.UserID, 10),
			item.UserName,
			item.UserEmail,
			string(item.ResourceType),
			item.ResourceID,
			item.Message,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}
