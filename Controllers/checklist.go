package Controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"Maintenance/Models"
	"Maintenance/Notify"
	"Maintenance/Records"
	"Maintenance/Report"
	"Maintenance/middleware"
)

// ChecklistController handles draft, submission and listing endpoints
type ChecklistController struct {
	Service    *Records.Service
	Template   *Models.ChecklistTemplate
	Notifier   Notify.Notifier
	Production bool
}

// NewChecklistController creates a new ChecklistController
func NewChecklistController(svc *Records.Service, tmpl *Models.ChecklistTemplate, notifier Notify.Notifier, production bool) *ChecklistController {
	return &ChecklistController{Service: svc, Template: tmpl, Notifier: notifier, Production: production}
}

// technicianFilter prefers an explicit technicianId query over the token's technician.
func technicianFilter(ctx *fiber.Ctx) string {
	if id := ctx.Query("technicianId"); id != "" {
		return id
	}
	return middleware.TechnicianID(ctx)
}

func recordDropped(dropped []string) {
	if len(dropped) > 0 {
		middleware.DroppedFields.Add(float64(len(dropped)))
	}
}

// GetHomepageData returns customers, the technician's drafts and completed checklists, and stats
func (c *ChecklistController) GetHomepageData(ctx *fiber.Ctx) error {
	data, err := c.Service.Homepage(ctx.UserContext(), technicianFilter(ctx))
	if err != nil {
		return writeError(ctx, err, c.Production)
	}
	return ctx.JSON(data)
}

// SaveDraft creates or updates a draft
func (c *ChecklistController) SaveDraft(ctx *fiber.Ctx) error {
	draft, err := Models.DecodeChecklist(ctx.Body())
	if err != nil {
		return badRequest(ctx, "draft body must be a JSON object")
	}

	res, err := c.Service.Drafts.Save(ctx.UserContext(), draft)
	if err != nil {
		return writeError(ctx, err, c.Production)
	}

	status := "updated"
	if res.Created {
		status = "created"
	}
	middleware.DraftsSaved.WithLabelValues(status).Inc()
	recordDropped(res.Dropped)

	return ctx.JSON(fiber.Map{
		"status":        status,
		"draftID":       res.DraftID,
		"droppedFields": res.Dropped,
	})
}

// GetDraft returns one draft by id
func (c *ChecklistController) GetDraft(ctx *fiber.Ctx) error {
	id := ctx.Query("draftId")
	if id == "" {
		return writeError(ctx, &Records.ValidationError{Fields: []string{"draftId"}}, c.Production)
	}
	draft, err := c.Service.Drafts.Find(ctx.UserContext(), id)
	if err != nil {
		return writeError(ctx, err, c.Production)
	}
	return ctx.JSON(draft)
}

// SubmitChecklist stores a completed checklist and removes its draft
func (c *ChecklistController) SubmitChecklist(ctx *fiber.Ctx) error {
	checklist, err := Models.DecodeChecklist(ctx.Body())
	if err != nil {
		return badRequest(ctx, "checklist body must be a JSON object")
	}

	res, err := c.Service.Submit(ctx.UserContext(), checklist)
	if err != nil {
		return writeError(ctx, err, c.Production)
	}
	middleware.ChecklistsSubmitted.Inc()
	recordDropped(res.Dropped)

	Notify.Dispatch(c.Notifier, res.Checklist, c.Service.EnrichOne)

	return ctx.JSON(fiber.Map{
		"status":        "success",
		"checklistID":   res.ChecklistID,
		"draftDeleted":  res.DraftDeleted,
		"droppedFields": res.Dropped,
	})
}

// ListChecklists returns a summary of every completed checklist
func (c *ChecklistController) ListChecklists(ctx *fiber.Ctx) error {
	summaries, err := c.Service.Summaries(ctx.UserContext())
	if err != nil {
		return writeError(ctx, err, c.Production)
	}
	return ctx.JSON(fiber.Map{
		"status":     "success",
		"checklists": summaries,
		"count":      len(summaries),
	})
}

// ChecklistTemplate returns the inspection categories and items
func (c *ChecklistController) ChecklistTemplate(ctx *fiber.Ctx) error {
	return ctx.JSON(c.Template)
}

// ExportChecklistsXLSX downloads completed checklists as a spreadsheet
func (c *ChecklistController) ExportChecklistsXLSX(ctx *fiber.Ctx) error {
	checklists, err := c.Service.CompletedFor(ctx.UserContext(), ctx.Query("technicianId"))
	if err != nil {
		return writeError(ctx, err, c.Production)
	}

	buf, err := Report.Workbook(checklists, c.Template)
	if err != nil {
		return writeError(ctx, err, c.Production)
	}
	middleware.ReportsExported.WithLabelValues("xlsx").Inc()

	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Attachment(fmt.Sprintf("checklists_%s.xlsx", time.Now().Format("20060102")))
	return ctx.Send(buf.Bytes())
}
