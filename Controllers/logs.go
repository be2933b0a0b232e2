package Controllers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"Maintenance/middleware"
)

// LogGroup aggregates the requests of one method and path
type LogGroup struct {
	Path        string               `json:"path"`
	Method      string               `json:"method"`
	Count       int                  `json:"count"`
	AvgLatency  float64              `json:"avg_latency_ms"`
	MinLatency  float64              `json:"min_latency_ms"`
	MaxLatency  float64              `json:"max_latency_ms"`
	SuccessRate float64              `json:"success_rate"`
	Logs        []middleware.LogData `json:"logs"`
}

// LogsResponse is the paginated group listing
type LogsResponse struct {
	Groups      []LogGroup `json:"groups"`
	TotalLogs   int        `json:"total_logs"`
	TotalGroups int        `json:"total_groups"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
	TotalPages  int        `json:"total_pages"`
	DateFrom    time.Time  `json:"date_from"`
	DateTo      time.Time  `json:"date_to"`
}

// LogsController reads the request log back
type LogsController struct {
	Path string
}

// NewLogsController creates a new LogsController for the given request log
func NewLogsController(path string) *LogsController {
	return &LogsController{Path: path}
}

// dateRange parses date_from and date_to (YYYY-MM-DD). With neither set the
// range is today.
func dateRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	fromStr, toStr := c.Query("date_from"), c.Query("date_to")
	now := time.Now()
	if fromStr == "" && toStr == "" {
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return from, from.Add(24*time.Hour - time.Nanosecond), nil
	}

	from := time.Unix(0, 0).UTC()
	to := now
	if fromStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", fromStr, now.Location())
		if err != nil {
			return from, to, errors.New("Invalid date_from format. Use YYYY-MM-DD")
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", toStr, now.Location())
		if err != nil {
			return from, to, errors.New("Invalid date_to format. Use YYYY-MM-DD")
		}
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

func pagination(c *fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 50
	}
	return page, pageSize
}

// pageBounds returns the slice bounds of page and the page count.
func pageBounds(total, page, pageSize int) (int, int, int) {
	pages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end, pages
}

// read returns the entries between from and to. A missing log file is an
// empty log.
func (lc *LogsController) read(from, to time.Time) ([]middleware.LogData, error) {
	file, err := os.Open(lc.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var logs []middleware.LogData
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry middleware.LogData
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if !entry.Timestamp.Before(from) && !entry.Timestamp.After(to) {
			logs = append(logs, entry)
		}
	}
	return logs, scanner.Err()
}

// filterLogs keeps entries matching path (substring), method, status and technician
func filterLogs(logs []middleware.LogData, path, method, status, technician string) []middleware.LogData {
	wantStatus, statusErr := strconv.Atoi(status)
	var filtered []middleware.LogData
	for _, entry := range logs {
		if path != "" && !strings.Contains(strings.ToLower(entry.Path), strings.ToLower(path)) {
			continue
		}
		if method != "" && !strings.EqualFold(entry.Method, method) {
			continue
		}
		if status != "" && statusErr == nil && entry.Status != wantStatus {
			continue
		}
		if technician != "" && entry.TechnicianID != technician {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}

func latencyMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func succeeded(status int) bool {
	return status >= 200 && status < 300
}

// groupLogsByPath groups entries by method and path, busiest first
func groupLogsByPath(logs []middleware.LogData) []LogGroup {
	groups := map[string]*LogGroup{}
	var order []string
	for _, entry := range logs {
		key := fmt.Sprintf("%s %s", entry.Method, entry.Path)
		g, ok := groups[key]
		if !ok {
			g = &LogGroup{Path: entry.Path, Method: entry.Method, MinLatency: latencyMs(entry.Latency)}
			groups[key] = g
			order = append(order, key)
		}
		ms := latencyMs(entry.Latency)
		g.Count++
		g.Logs = append(g.Logs, entry)
		g.AvgLatency += ms
		if ms < g.MinLatency {
			g.MinLatency = ms
		}
		if ms > g.MaxLatency {
			g.MaxLatency = ms
		}
		if succeeded(entry.Status) {
			g.SuccessRate++
		}
	}

	out := make([]LogGroup, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.AvgLatency /= float64(g.Count)
		g.SuccessRate /= float64(g.Count)
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// GetLogs returns request logs grouped by path with latency stats
func (lc *LogsController) GetLogs(c *fiber.Ctx) error {
	from, to, err := dateRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	page, pageSize := pagination(c)

	logs, err := lc.read(from, to)
	if err != nil {
		log.Printf("[logs] read %s: %v", lc.Path, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read logs"})
	}
	filtered := filterLogs(logs, c.Query("path"), c.Query("method"), c.Query("status"), c.Query("technicianId"))
	groups := groupLogsByPath(filtered)
	start, end, pages := pageBounds(len(groups), page, pageSize)

	return c.JSON(LogsResponse{
		Groups:      groups[start:end],
		TotalLogs:   len(filtered),
		TotalGroups: len(groups),
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  pages,
		DateFrom:    from,
		DateTo:      to,
	})
}

// GetLogsByPath returns the entries of one path, newest first
func (lc *LogsController) GetLogsByPath(c *fiber.Ctx) error {
	path := c.Params("path")
	if path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Path parameter is required"})
	}
	from, to, err := dateRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	page, pageSize := pagination(c)

	logs, err := lc.read(from, to)
	if err != nil {
		log.Printf("[logs] read %s: %v", lc.Path, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read logs"})
	}
	pathLogs := filterLogs(logs, path, "", "", "")
	sort.SliceStable(pathLogs, func(i, j int) bool {
		return pathLogs[i].Timestamp.After(pathLogs[j].Timestamp)
	})
	start, end, pages := pageBounds(len(pathLogs), page, pageSize)

	return c.JSON(fiber.Map{
		"logs":        pathLogs[start:end],
		"total_logs":  len(pathLogs),
		"page":        page,
		"page_size":   pageSize,
		"total_pages": pages,
		"path":        path,
		"date_from":   from,
		"date_to":     to,
	})
}

// GetLogStats returns request counts, latency and the busiest paths
func (lc *LogsController) GetLogStats(c *fiber.Ctx) error {
	from, to, err := dateRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	logs, err := lc.read(from, to)
	if err != nil {
		log.Printf("[logs] read %s: %v", lc.Path, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read logs"})
	}

	var successful, failed int
	var total, minLatency, maxLatency time.Duration
	methodStats := map[string]int{}
	statusStats := map[int]int{}
	pathStats := map[string]int{}
	for i, entry := range logs {
		if succeeded(entry.Status) {
			successful++
		} else if entry.Status >= 400 {
			failed++
		}
		total += entry.Latency
		if i == 0 || entry.Latency < minLatency {
			minLatency = entry.Latency
		}
		if entry.Latency > maxLatency {
			maxLatency = entry.Latency
		}
		methodStats[entry.Method]++
		statusStats[entry.Status]++
		pathStats[entry.Path]++
	}

	var avg time.Duration
	successRate := 0.0
	if n := len(logs); n > 0 {
		avg = total / time.Duration(n)
		successRate = float64(successful) / float64(n) * 100
	}

	type pathCount struct {
		Path  string `json:"path"`
		Count int    `json:"count"`
	}
	topPaths := make([]pathCount, 0, len(pathStats))
	for path, count := range pathStats {
		topPaths = append(topPaths, pathCount{path, count})
	}
	sort.Slice(topPaths, func(i, j int) bool {
		if topPaths[i].Count != topPaths[j].Count {
			return topPaths[i].Count > topPaths[j].Count
		}
		return topPaths[i].Path < topPaths[j].Path
	})
	if len(topPaths) > 10 {
		topPaths = topPaths[:10]
	}

	return c.JSON(fiber.Map{
		"total_requests":      len(logs),
		"successful_requests": successful,
		"error_requests":      failed,
		"success_rate":        successRate,
		"avg_latency_ms":      latencyMs(avg),
		"min_latency_ms":      latencyMs(minLatency),
		"max_latency_ms":      latencyMs(maxLatency),
		"method_stats":        methodStats,
		"status_stats":        statusStats,
		"top_paths":           topPaths,
		"date_from":           from,
		"date_to":             to,
	})
}
