package Config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

// SheetNames holds the tab names of every backing collection.
type SheetNames struct {
	Customers   string `json:"customers"`
	Drafts      string `json:"drafts"`
	Completed   string `json:"completed"`
	Technicians string `json:"technicians"`
}

// SMTPConfig holds the outgoing mail settings used for submission notices.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
}

// Enabled reports whether enough settings are present to send mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != "" && len(s.Recipients) > 0
}

// Config is built once at startup and passed by value to every component.
type Config struct {
	Env         string
	Port        string
	JWTSecret   string
	CORSOrigins string

	SheetsBackend string
	SpreadsheetID string
	ExcelPath     string

	ServiceAccountEmail string
	PrivateKey          string

	Sheets SheetNames

	PhotoBackend            string
	DriveFolderID           string
	FirebaseBucket          string
	FirebaseCredentialsFile string
	PhotoDir                string
	PhotoReferenceMode      string
	PhotoPublic             bool

	UnknownFieldPolicy string

	TempDir           string
	TempMaxAge        time.Duration
	TempSweepSchedule string
	LedgerPath        string

	ChecklistTemplate string
	RequestLogPath    string

	SlackToken   string
	SlackChannel string
	SMTP         SMTPConfig
}

// MissingError lists every required variable that was absent.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("[config] Missing required env var(s): %s", strings.Join(e.Vars, ", "))
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				return v
			}
		}
		return ""
	}

	cfg := Config{
		Env:                     get("APP_ENV", "development"),
		Port:                    get("PORT", "3001"),
		JWTSecret:               get("JWT_SECRET", ""),
		CORSOrigins:             get("CORS_ORIGINS", ""),
		SheetsBackend:           strings.ToLower(get("SHEETS_BACKEND", "google")),
		SpreadsheetID:           get("SPREADSHEET_ID", ""),
		ExcelPath:               get("EXCEL_PATH", "maintenance.xlsx"),
		ServiceAccountEmail:     strings.TrimSpace(first("GOOGLE_SERVICE_ACCOUNT_EMAIL", "GCP_CLIENT_EMAIL")),
		PrivateKey:              strings.ReplaceAll(first("GOOGLE_PRIVATE_KEY", "GCP_PRIVATE_KEY"), `\n`, "\n"),
		PhotoBackend:            strings.ToLower(get("PHOTO_BACKEND", "drive")),
		DriveFolderID:           get("DRIVE_FOLDER_ID", ""),
		FirebaseBucket:          get("FIREBASE_BUCKET", ""),
		FirebaseCredentialsFile: get("FIREBASE_CREDENTIALS_FILE", ""),
		PhotoDir:                get("PHOTO_DIR", "photos"),
		PhotoReferenceMode:      strings.ToLower(get("PHOTO_REFERENCE_MODE", "proxy")),
		UnknownFieldPolicy:      strings.ToLower(get("UNKNOWN_FIELD_POLICY", "drop")),
		TempDir:                 get("TEMP_DIR", os.TempDir()),
		TempSweepSchedule:       get("TEMP_SWEEP_SCHEDULE", "@every 15m"),
		LedgerPath:              get("LEDGER_PATH", "maintenance.db"),
		ChecklistTemplate:       get("CHECKLIST_TEMPLATE", "checklist.json5"),
		RequestLogPath:          get("REQUEST_LOG_PATH", "logs/requests.log"),
		SlackToken:              get("SLACK_BOT_TOKEN", ""),
		SlackChannel:            get("SLACK_CHANNEL", ""),
		Sheets: SheetNames{
			Customers:   get("SHEET_CUSTOMERS", "CustomerList"),
			Drafts:      get("SHEET_DRAFTS", "Drafts"),
			Completed:   get("SHEET_COMPLETED", "FilterTester"),
			Technicians: get("SHEET_TECHNICIANS", "TechnicianDetails"),
		},
	}

	var err error
	if cfg.PhotoPublic, err = strconv.ParseBool(get("PHOTO_PUBLIC", "false")); err != nil {
		return Config{}, fmt.Errorf("[config] PHOTO_PUBLIC: %w", err)
	}
	if cfg.TempMaxAge, err = time.ParseDuration(get("TEMP_MAX_AGE", "1h")); err != nil {
		return Config{}, fmt.Errorf("[config] TEMP_MAX_AGE: %w", err)
	}

	smtpPort, err := strconv.Atoi(get("SMTP_PORT", "587"))
	if err != nil {
		return Config{}, fmt.Errorf("[config] SMTP_PORT: %w", err)
	}
	cfg.SMTP = SMTPConfig{
		Host:     get("SMTP_HOST", ""),
		Port:     smtpPort,
		Username: get("SMTP_USER", ""),
		Password: get("SMTP_PASSWORD", ""),
		From:     get("SMTP_FROM", ""),
	}
	for _, addr := range strings.Split(get("NOTIFY_EMAILS", ""), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			cfg.SMTP.Recipients = append(cfg.SMTP.Recipients, addr)
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	if cfg.JWTSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return Config{}, fmt.Errorf("[config] generate JWT secret: %w", err)
		}
		cfg.JWTSecret = hex.EncodeToString(buf)
		log.Println("[config] JWT_SECRET not set, using a per-process secret; tokens will not survive restarts")
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	needCredentials := false

	switch c.SheetsBackend {
	case "google":
		needCredentials = true
		if c.SpreadsheetID == "" {
			missing = append(missing, "SPREADSHEET_ID")
		}
	case "excel":
	default:
		return fmt.Errorf("[config] SHEETS_BACKEND must be google or excel, got %q", c.SheetsBackend)
	}

	switch c.PhotoBackend {
	case "drive":
		needCredentials = true
		if c.DriveFolderID == "" {
			missing = append(missing, "DRIVE_FOLDER_ID")
		}
	case "firebase":
		if c.FirebaseBucket == "" {
			missing = append(missing, "FIREBASE_BUCKET")
		}
	case "local":
	default:
		return fmt.Errorf("[config] PHOTO_BACKEND must be drive, firebase or local, got %q", c.PhotoBackend)
	}

	if needCredentials {
		if c.ServiceAccountEmail == "" {
			missing = append(missing, "GOOGLE_SERVICE_ACCOUNT_EMAIL or GCP_CLIENT_EMAIL")
		}
		if c.PrivateKey == "" {
			missing = append(missing, "GOOGLE_PRIVATE_KEY or GCP_PRIVATE_KEY")
		}
	}

	switch c.PhotoReferenceMode {
	case "proxy", "direct", "link":
	default:
		return fmt.Errorf("[config] PHOTO_REFERENCE_MODE must be proxy, direct or link, got %q", c.PhotoReferenceMode)
	}
	switch c.UnknownFieldPolicy {
	case "drop", "reject", "extend":
	default:
		return fmt.Errorf("[config] UNKNOWN_FIELD_POLICY must be drop, reject or extend, got %q", c.UnknownFieldPolicy)
	}

	if len(missing) > 0 {
		return &MissingError{Vars: missing}
	}
	return nil
}

// Production reports whether upstream error details should be hidden.
func (c Config) Production() bool {
	return c.Env == "production"
}

// HasCredentials reports whether a service account is configured.
func (c Config) HasCredentials() bool {
	return c.ServiceAccountEmail != "" && c.PrivateKey != ""
}

// TokenSource returns a service-account token source for the given scopes.
func (c Config) TokenSource(ctx context.Context, scopes ...string) oauth2.TokenSource {
	conf := &jwt.Config{
		Email:      c.ServiceAccountEmail,
		PrivateKey: []byte(c.PrivateKey),
		Scopes:     scopes,
		TokenURL:   google.JWTTokenURL,
	}
	return conf.TokenSource(ctx)
}
