package Controllers

import (
	"github.com/gofiber/fiber/v2"

	"Maintenance/Config"
	"Maintenance/Records"
	"Maintenance/Storage"
)

// DiagnosticsController reports backing sheet shapes and configuration presence
type DiagnosticsController struct {
	Service *Records.Service
	Ledger  *Storage.Ledger
	Config  Config.Config
}

// NewDiagnosticsController creates a new DiagnosticsController
func NewDiagnosticsController(svc *Records.Service, ledger *Storage.Ledger, cfg Config.Config) *DiagnosticsController {
	return &DiagnosticsController{Service: svc, Ledger: ledger, Config: cfg}
}

// Diagnostics returns header info for every collection. Secrets are reported
// as present or absent only.
func (c *DiagnosticsController) Diagnostics(ctx *fiber.Ctx) error {
	env := fiber.Map{
		"hasSpreadsheetId":   c.Config.SpreadsheetID != "",
		"hasAnyClientEmail":  c.Config.ServiceAccountEmail != "",
		"hasAnyPrivateKey":   c.Config.PrivateKey != "",
		"hasDriveFolderId":   c.Config.DriveFolderID != "",
		"sheetsBackend":      c.Config.SheetsBackend,
		"photoBackend":       c.Config.PhotoBackend,
		"photoReferenceMode": c.Config.PhotoReferenceMode,
		"unknownFieldPolicy": c.Config.UnknownFieldPolicy,
		"sheetNames":         c.Config.Sheets,
	}

	out := fiber.Map{
		"status": "success",
		"sheets": c.Service.Diagnostics(ctx.UserContext()),
		"env":    env,
	}
	if c.Ledger != nil {
		if pending, err := c.Ledger.Pending(); err == nil {
			out["pendingTempFiles"] = pending
		}
	}
	return ctx.JSON(out)
}
