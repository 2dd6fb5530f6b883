package ui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/spotproxy/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// EventTable renders events as a bordered table, newest first as given.
func EventTable(events []*models.AuthEvent) string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.CreatedAt().Local().Format(timeLayout),
			string(e.Kind()),
			e.Outcome(),
			dash(e.UserID()),
			dash(e.Path()),
			dash(e.RemoteAddr()),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(NewStyle("#626262")).
		Headers("TIME", "KIND", "OUTCOME", "USER", "PATH", "REMOTE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if col == 2 && row >= 0 && row < len(rows) {
				return s.Inherit(styles.outcome(rows[row][2]))
			}
			return s
		}).
		String()
}

// Since formats how long ago t was, to the second.
func Since(t, now time.Time) string {
	return now.Sub(t).Round(time.Second).String() + " ago"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
