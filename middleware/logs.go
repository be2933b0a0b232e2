package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LogConfig holds configuration for the logging middleware
type LogConfig struct {
	Console bool
	// Every request is appended here as one JSON line
	LogFilePath string
	// Requests answered with status >= 400 are also appended here
	ErrorLogPath string
	// Skip logging for paths with these prefixes
	SkipPaths []string
}

// LogData contains all the information that will be logged
type LogData struct {
	Timestamp     time.Time     `json:"timestamp"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	URL           string        `json:"url"`
	Status        int           `json:"status"`
	Latency       time.Duration `json:"latency"`
	IP            string        `json:"ip"`
	UserAgent     string        `json:"user_agent"`
	RequestID     string        `json:"request_id"`
	Error         string        `json:"error,omitempty"`
	TechnicianID  string        `json:"technician_id,omitempty"`
	ContentLength int64         `json:"content_length"`
}

// DefaultLogConfig logs every request except health checks and assets.
func DefaultLogConfig(path string) LogConfig {
	if path == "" {
		path = "logs/requests.log"
	}
	return LogConfig{
		Console:      true,
		LogFilePath:  path,
		ErrorLogPath: filepath.Join(filepath.Dir(path), "errors.log"),
		SkipPaths:    []string{"/health", "/metrics", "/static"},
	}
}

// RequestLogger writes one JSON line per request to the console and the log files.
func RequestLogger(cfg LogConfig) fiber.Handler {
	for _, p := range []string{cfg.LogFilePath, cfg.ErrorLogPath} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			log.Printf("Error creating logs directory: %v\n", err)
		}
	}
	var mu sync.Mutex

	return func(c *fiber.Ctx) error {
		start := time.Now()

		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(c.Path(), skip) {
				return c.Next()
			}
		}

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		data := LogData{
			Timestamp:     start,
			Method:        c.Method(),
			Path:          c.Path(),
			URL:           c.OriginalURL(),
			Status:        status,
			Latency:       time.Since(start),
			IP:            c.IP(),
			UserAgent:     c.Get(fiber.HeaderUserAgent),
			RequestID:     c.Get(fiber.HeaderXRequestID),
			TechnicianID:  TechnicianID(c),
			ContentLength: responseSize(c),
		}
		if err != nil {
			data.Error = err.Error()
		}

		line, _ := json.Marshal(data)
		if cfg.Console {
			log.Println(string(line))
		}
		mu.Lock()
		if cfg.LogFilePath != "" {
			logToFile(cfg.LogFilePath, line)
		}
		if cfg.ErrorLogPath != "" && (err != nil || status >= 400) {
			logToFile(cfg.ErrorLogPath, line)
		}
		mu.Unlock()

		return err
	}
}

// logToFile appends one line to the file at path
func logToFile(path string, line []byte) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Error opening log file: %v\n", err)
		return
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%s\n", line); err != nil {
		log.Printf("Error writing to log file: %v\n", err)
	}
}

// responseSize reports the body size without draining streamed bodies. A
// stream of unknown length reports -1.
func responseSize(c *fiber.Ctx) int64 {
	resp := c.Response()
	if resp.IsBodyStream() {
		return int64(resp.Header.ContentLength())
	}
	return int64(len(resp.Body()))
}
