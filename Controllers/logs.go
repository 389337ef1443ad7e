package Controllers

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"Rishui/middleware"

	"github.com/gofiber/fiber/v2"
)

const logFilePath = "logs/requests.log"

// LogGroup aggregates request log entries sharing a method+path.
type LogGroup struct {
	Path        string               `json:"path"`
	Method      string               `json:"method"`
	Count       int                  `json:"count"`
	AvgLatency  float64              `json:"avg_latency_ms"`
	MaxLatency  float64              `json:"max_latency_ms"`
	SuccessRate float64              `json:"success_rate"`
	Logs        []middleware.LogData `json:"logs"`
}

// GetLogs returns request logs grouped by endpoint, paginated and filtered
// by date range. Admin only.
// GET /api/admin/logs
func GetLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 50
	}

	dateFrom, dateTo, err := parseLogDateRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "פורמט תאריך שגוי, יש להשתמש ב-YYYY-MM-DD",
		})
	}

	logs, err := readLogEntries(logFilePath, dateFrom, dateTo)
	if err != nil {
		log.Printf("Error reading logs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאה בקריאת קובץ הלוגים",
		})
	}

	if pathFilter := c.Query("path"); pathFilter != "" {
		filtered := logs[:0]
		for _, entry := range logs {
			if strings.Contains(strings.ToLower(entry.Path), strings.ToLower(pathFilter)) {
				filtered = append(filtered, entry)
			}
		}
		logs = filtered
	}

	groups := groupLogsByEndpoint(logs)

	totalGroups := len(groups)
	totalPages := (totalGroups + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > totalGroups {
		start = totalGroups
	}
	end := start + pageSize
	if end > totalGroups {
		end = totalGroups
	}

	return c.JSON(fiber.Map{
		"groups":       groups[start:end],
		"total_logs":   len(logs),
		"total_groups": totalGroups,
		"page":         page,
		"page_size":    pageSize,
		"total_pages":  totalPages,
		"date_from":    dateFrom,
		"date_to":      dateTo,
	})
}

// parseLogDateRange reads date_from/date_to query parameters, defaulting to
// today when both are absent.
func parseLogDateRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	fromStr := c.Query("date_from")
	toStr := c.Query("date_to")

	if fromStr == "" && toStr == "" {
		now := time.Now()
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return from, from.Add(24*time.Hour - time.Nanosecond), nil
	}

	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}

	to := time.Now()
	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}

	return from, to, nil
}

func readLogEntries(path string, dateFrom, dateTo time.Time) ([]middleware.LogData, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var logs []middleware.LogData
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry middleware.LogData
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Timestamp.After(dateFrom) && entry.Timestamp.Before(dateTo) {
			logs = append(logs, entry)
		}
	}
	return logs, scanner.Err()
}

func groupLogsByEndpoint(logs []middleware.LogData) []LogGroup {
	groupMap := make(map[string]*LogGroup)

	for _, entry := range logs {
		key := entry.Method + " " + entry.Path
		group, exists := groupMap[key]
		if !exists {
			group = &LogGroup{Path: entry.Path, Method: entry.Method}
			groupMap[key] = group
		}

		latencyMs := float64(entry.Latency.Microseconds()) / 1000.0
		group.AvgLatency = (group.AvgLatency*float64(group.Count) + latencyMs) / float64(group.Count+1)
		if latencyMs > group.MaxLatency {
			group.MaxLatency = latencyMs
		}
		success := 0.0
		if entry.Status >= 200 && entry.Status < 300 {
			success = 1.0
		}
		group.SuccessRate = (group.SuccessRate*float64(group.Count) + success) / float64(group.Count+1)

		group.Count++
		group.Logs = append(group.Logs, entry)
	}

	groups := make([]LogGroup, 0, len(groupMap))
	for _, group := range groupMap {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	return groups
}
