package Controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"Maintenance/Models"
	"Maintenance/Records"
	"Maintenance/Report"
	"Maintenance/Storage"
	"Maintenance/middleware"
)

// ExportController renders checklists as PDF downloads
type ExportController struct {
	Service    *Records.Service
	Fetcher    *Storage.Fetcher
	Ledger     *Storage.Ledger
	Generator  *Report.Generator
	Production bool
}

// NewExportController creates a new ExportController
func NewExportController(svc *Records.Service, fetcher *Storage.Fetcher, ledger *Storage.Ledger, gen *Report.Generator, production bool) *ExportController {
	return &ExportController{Service: svc, Fetcher: fetcher, Ledger: ledger, Generator: gen, Production: production}
}

// exportRequest is the one accepted request shape. The id comes from
// checklistId, falling back to checklist.ChecklistID.
type exportRequest struct {
	ChecklistID string
	Checklist   Models.Checklist
	Uploads     []*multipart.FileHeader
	Received    []string
}

func (r exportRequest) id() string {
	if id := strings.TrimSpace(r.ChecklistID); id != "" {
		return id
	}
	return r.Checklist.Get(Models.FieldChecklistID)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseExportRequest(ctx *fiber.Ctx) (exportRequest, error) {
	var req exportRequest
	if ctx.Method() == fiber.MethodGet {
		req.ChecklistID = ctx.Query("checklistId")
		req.Received = sortedKeys(ctx.Queries())
		return req, nil
	}

	if strings.HasPrefix(ctx.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := ctx.MultipartForm()
		if err != nil {
			return req, err
		}
		req.Received = append(sortedKeys(form.Value), sortedKeys(form.File)...)
		if v := form.Value["checklistId"]; len(v) > 0 {
			req.ChecklistID = v[0]
		}
		if v := form.Value["checklist"]; len(v) > 0 && strings.TrimSpace(v[0]) != "" {
			cl, err := Models.DecodeChecklist([]byte(v[0]))
			if err != nil {
				return req, fmt.Errorf("checklist field: %w", err)
			}
			req.Checklist = cl
		}
		req.Uploads = form.File["photos"]
		return req, nil
	}

	var body struct {
		ChecklistID string                 `json:"checklistId"`
		Checklist   map[string]interface{} `json:"checklist"`
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(ctx.Body(), &raw); err != nil {
		return req, err
	}
	req.Received = sortedKeys(raw)
	dec := json.NewDecoder(bytes.NewReader(ctx.Body()))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return req, err
	}
	req.ChecklistID = body.ChecklistID
	if body.Checklist != nil {
		cl, err := Models.NormalizeFields(body.Checklist)
		if err != nil {
			return req, err
		}
		req.Checklist = cl
	}
	return req, nil
}

// resolve picks the checklist to render: the stored row when the id is
// known, otherwise the inline checklist.
func (c *ExportController) resolve(ctx *fiber.Ctx, req exportRequest) (Models.Checklist, string, error) {
	id := req.id()
	if id == "" {
		if req.Checklist == nil {
			return nil, "", &Records.ValidationError{
				Fields:  []string{"checklistId"},
				Message: "checklistId is required (received: " + strings.Join(req.Received, ", ") + ")",
			}
		}
		id = fmt.Sprintf("PDF-%d", time.Now().UnixMilli())
		cl := req.Checklist.Clone()
		cl[Models.FieldChecklistID] = id
		return cl, id, nil
	}

	stored, err := c.Service.Completed.Find(ctx.UserContext(), id)
	var notFound *Records.NotFoundError
	switch {
	case err == nil:
		return stored, id, nil
	case errors.As(err, &notFound) && req.Checklist != nil:
		cl := req.Checklist.Clone()
		cl[Models.FieldChecklistID] = id
		return cl, id, nil
	default:
		return nil, "", err
	}
}

// photoDescriptions names each referenced photo after the item it belongs to.
func photoDescriptions(cl Models.Checklist, tmpl *Models.ChecklistTemplate) map[string]string {
	out := map[string]string{}
	for _, key := range cl.Keys() {
		item, ok := Models.ParseItem(cl[key])
		if !ok {
			continue
		}
		label, ok := tmpl.Label(key)
		if !ok {
			label = strings.ReplaceAll(key, "_", " ")
		}
		for _, ref := range item.Photos {
			if _, seen := out[ref]; !seen {
				out[ref] = label
			}
		}
	}
	return out
}

// collectPhotos downloads every referenced photo and saves uploaded ones to
// ledger temp files. A photo that cannot be fetched keeps an empty Path and
// renders as a placeholder.
func (c *ExportController) collectPhotos(ctx *fiber.Ctx, cl Models.Checklist, uploads []*multipart.FileHeader) []Report.Photo {
	refs := cl.PhotoRefs()
	descriptions := photoDescriptions(cl, c.Generator.Template)
	photos := make([]Report.Photo, len(refs), len(refs)+len(uploads))

	g, gctx := errgroup.WithContext(ctx.UserContext())
	g.SetLimit(4)
	for i, ref := range refs {
		i, ref := i, ref
		photos[i] = Report.Photo{Ref: ref, Description: descriptions[ref]}
		g.Go(func() error {
			path, err := c.Fetcher.Fetch(gctx, ref)
			if err != nil {
				log.Printf("[export] photo %s: %v", ref, err)
				return nil
			}
			photos[i].Path = path
			return nil
		})
	}
	_ = g.Wait()

	for _, fh := range uploads {
		path, err := c.saveUpload(fh)
		if err != nil {
			log.Printf("[export] uploaded photo %s: %v", fh.Filename, err)
			continue
		}
		photos = append(photos, Report.Photo{Description: fh.Filename, Path: path})
	}
	return photos
}

func (c *ExportController) saveUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := c.Ledger.Create("upload-*"+strings.ToLower(filepath.Ext(fh.Filename)), "upload")
	if err != nil {
		return "", err
	}
	_, err = io.Copy(out, io.LimitReader(src, Storage.MaxPhotoBytes))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		c.Ledger.Release(out.Name())
		return "", err
	}
	return out.Name(), nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// releasingFile removes the temp PDF once the response stream is done.
type releasingFile struct {
	*os.File
	ledger *Storage.Ledger
}

func (r *releasingFile) Close() error {
	err := r.File.Close()
	r.ledger.Release(r.Name())
	return err
}

// ExportChecklist renders a checklist and its photos as a PDF download
func (c *ExportController) ExportChecklist(ctx *fiber.Ctx) error {
	req, err := parseExportRequest(ctx)
	if err != nil {
		return badRequest(ctx, "invalid export request: "+err.Error())
	}
	cl, id, err := c.resolve(ctx, req)
	if err != nil {
		return writeError(ctx, err, c.Production)
	}
	cl = c.Service.EnrichOne(ctx.UserContext(), cl)

	photos := c.collectPhotos(ctx, cl, req.Uploads)
	defer func() {
		for _, p := range photos {
			c.Ledger.Release(p.Path)
		}
	}()

	out, err := c.Ledger.Create("checklist-*.pdf", "pdf")
	if err != nil {
		return writeError(ctx, err, c.Production)
	}
	err = c.Generator.Generate(cl, photos, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		c.Ledger.Release(out.Name())
		return writeError(ctx, fmt.Errorf("generate report %s: %w", id, err), c.Production)
	}

	f, err := os.Open(out.Name())
	if err != nil {
		c.Ledger.Release(out.Name())
		return writeError(ctx, err, c.Production)
	}
	middleware.ReportsExported.WithLabelValues("pdf").Inc()

	ctx.Set(fiber.HeaderContentType, "application/pdf")
	ctx.Attachment(fmt.Sprintf("Checklist_%s.pdf", unsafeFileChars.ReplaceAllString(id, "_")))
	return ctx.SendStream(&releasingFile{File: f, ledger: c.Ledger})
}
