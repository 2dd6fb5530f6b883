package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spotproxy/internal/models"
)

var _ list.Item = eventItem{}

// eventItem wraps [models.AuthEvent] to implement [list.Item].
type eventItem struct {
	event *models.AuthEvent
	now   time.Time
}

func (i eventItem) FilterValue() string {
	return string(i.event.Kind()) + " " + i.event.Outcome() + " " + i.event.UserID()
}

func (i eventItem) Title() string {
	return fmt.Sprintf("%s • %s", i.event.Kind(), i.event.Outcome())
}

func (i eventItem) Description() string {
	desc := Since(i.event.CreatedAt(), i.now)
	if user := i.event.UserID(); user != "" {
		desc = fmt.Sprintf("%s • %s", desc, user)
	}
	if path := i.event.Path(); path != "" {
		desc = fmt.Sprintf("%s • %s", desc, path)
	}
	return desc
}

func eventItems(events []*models.AuthEvent, now time.Time) []list.Item {
	items := make([]list.Item, len(events))
	for i, e := range events {
		items[i] = eventItem{event: e, now: now}
	}
	return items
}
