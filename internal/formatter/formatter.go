// package formatter exports auth journal entries to files (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/spotproxy/internal/models"
	"github.com/desertthunder/spotproxy/internal/shared"
)

// Format names an export encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ParseFormat resolves a format name, falling back to the file extension of path when name is empty.
func ParseFormat(name, path string) (Format, error) {
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	switch strings.ToLower(name) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, name)
}

// ExportToCSV converts events to CSV with columns: ID, Time, Kind, Outcome, User, Path, Remote
func ExportToCSV(events []*models.AuthEvent) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Time", "Kind", "Outcome", "User", "Path", "Remote"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range events {
		record := []string{
			e.ID(),
			e.CreatedAt().UTC().Format(time.RFC3339),
			string(e.Kind()),
			e.Outcome(),
			e.UserID(),
			e.Path(),
			e.RemoteAddr(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders events as a Markdown report with an outcome summary.
func ExportToMarkdown(events []*models.AuthEvent, generated time.Time) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Auth journal\n\n")
	buf.WriteString(fmt.Sprintf("**Generated**: %s\n", generated.UTC().Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("**Events**: %d\n\n", len(events)))

	counts, order := tally(events)
	if len(order) > 0 {
		buf.WriteString("## Outcomes\n\n")
		for _, outcome := range order {
			buf.WriteString(fmt.Sprintf("- %s: %d\n", outcome, counts[outcome]))
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Events\n\n")
	buf.WriteString("| Time | Kind | Outcome | User | Path |\n")
	buf.WriteString("|---|---|---|---|---|\n")
	for _, e := range events {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			e.CreatedAt().UTC().Format(time.RFC3339), e.Kind(), e.Outcome(), cell(e.UserID()), cell(e.Path())))
	}

	return buf.Bytes(), nil
}

// ExportToText converts events to one line each
func ExportToText(events []*models.AuthEvent) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Events: %d\n\n", len(events)))
	for i, e := range events {
		line := fmt.Sprintf("%d. %s %s %s", i+1, e.CreatedAt().UTC().Format(time.RFC3339), e.Kind(), e.Outcome())
		if e.UserID() != "" {
			line += " user=" + e.UserID()
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// WriteExport encodes events as format and writes them to path.
func WriteExport(events []*models.AuthEvent, format Format, path string, generated time.Time) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatCSV:
		data, err = ExportToCSV(events)
	case FormatMarkdown:
		data, err = ExportToMarkdown(events, generated)
	case FormatText:
		data, err = ExportToText(events)
	default:
		return fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// tally counts events per outcome, keeping first-seen order.
func tally(events []*models.AuthEvent) (map[string]int, []string) {
	counts := map[string]int{}
	var order []string
	for _, e := range events {
		if counts[e.Outcome()] == 0 {
			order = append(order, e.Outcome())
		}
		counts[e.Outcome()]++
	}
	return counts, order
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
