package Controllers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/gofiber/fiber/v2"
)

// calendarClient is overridable in tests.
var calendarClient = &http.Client{Timeout: 10 * time.Second}

type calendarEvent struct {
	UID      string `json:"uid"`
	Summary  string `json:"summary"`
	Location string `json:"location,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
}

// GetCalendarEvents fetches a public ICS feed and flattens it into event
// objects the client renders on the inspections calendar.
// GET /api/calendar?url=...
func GetCalendarEvents(c *fiber.Ctx) error {
	feedURL := c.Query("url")
	if feedURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "יש לציין כתובת יומן (url)",
		})
	}

	parsed, err := url.Parse(feedURL)
	if err != nil || parsed.Scheme != "https" || !strings.HasSuffix(strings.ToLower(parsed.Path), ".ics") {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "כתובת היומן חייבת להיות HTTPS ולהסתיים ב-.ics",
		})
	}

	resp, err := calendarClient.Get(feedURL)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "שגיאה בגישה ליומן החיצוני",
			"error":   err.Error(),
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "היומן החיצוני החזיר שגיאה",
			"status":  resp.StatusCode,
		})
	}

	cal, err := ics.ParseCalendar(resp.Body)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "קובץ היומן אינו תקין",
			"error":   err.Error(),
		})
	}

	events := make([]calendarEvent, 0)
	for _, e := range cal.Events() {
		event := calendarEvent{UID: e.Id()}
		if prop := e.GetProperty(ics.ComponentPropertySummary); prop != nil {
			event.Summary = prop.Value
		}
		if prop := e.GetProperty(ics.ComponentPropertyLocation); prop != nil {
			event.Location = prop.Value
		}
		if start, err := e.GetStartAt(); err == nil {
			event.Start = start.Format(time.RFC3339)
		}
		if end, err := e.GetEndAt(); err == nil {
			event.End = end.Format(time.RFC3339)
		}
		events = append(events, event)
	}

	return c.JSON(events)
}
