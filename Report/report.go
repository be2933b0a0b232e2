package Report

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	_ "golang.org/x/image/webp"

	"Maintenance/Models"
)

const (
	pageWidth    = 595.28
	margin       = 50.0
	contentWidth = 495.0
	itemsBreakY  = 700.0
	reviewBreakY = 600.0
	photoBreakY  = 500.0
	footerY      = 770.0
	photoWidth   = 400.0
	photoHeight  = 300.0
)

type rgb struct{ r, g, b int }

var (
	primary     = rgb{37, 99, 235}
	secondary   = rgb{100, 116, 139}
	lightGray   = rgb{248, 250, 252}
	border      = rgb{226, 232, 240}
	white       = rgb{255, 255, 255}
	ink         = rgb{31, 41, 55}
	labelInk    = rgb{55, 65, 81}
	muted       = rgb{156, 163, 175}
	mutedDark   = rgb{107, 114, 128}
	placeholder = rgb{249, 250, 251}
	missingFill = rgb{243, 244, 246}
	errorFill   = rgb{254, 226, 226}
	errorInk    = rgb{220, 38, 38}
)

// Generator lays out checklist reports.
type Generator struct {
	Template *Models.ChecklistTemplate
	Now      func() time.Time
	Compress bool
}

// NewGenerator labels items from tmpl when it knows them.
func NewGenerator(tmpl *Models.ChecklistTemplate) *Generator {
	return &Generator{Template: tmpl, Now: time.Now, Compress: true}
}

// GenerateFile writes the report to path.
func (g *Generator) GenerateFile(cl Models.Checklist, photos []Photo, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := g.Generate(cl, photos, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Generate renders header, equipment info, the item table, the review and
// signature block, a photo appendix and a footer on every page.
func (g *Generator) Generate(cl Models.Checklist, photos []Photo, w io.Writer) error {
	now := g.Now()
	id := cl.Get(Models.FieldChecklistID, "checklistId", "id", "ID")

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(g.Compress)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(now)
	pdf.SetTitle("Maintenance Checklist - "+id, true)
	pdf.SetAuthor("Maintenance App", true)
	pdf.SetSubject("Equipment Maintenance Report", true)
	pdf.AliasNbPages("")

	l := &layout{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		l.bar(margin, footerY, contentWidth, 1, secondary)
		l.text(margin, 780, 300, "Generated by Maintenance Management System", 9, "", secondary, "L")
		l.text(450, 780, 95, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), 9, "", secondary, "R")
		l.text(margin, 790, 300, "Generated on "+now.Format("2006-01-02 15:04"), 9, "", secondary, "L")
	})

	pdf.AddPage()
	l.header(id)
	y := l.equipment(cl, now)
	y = l.items(Items(cl, g.Template), y+30)
	l.review(cl, now, y+30)
	l.photos(uniquePhotos(photos))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render checklist %s: %w", id, err)
	}
	return nil
}

type layout struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (l *layout) fillBox(x, y, w, h float64, fill rgb) {
	l.pdf.SetDrawColor(border.r, border.g, border.b)
	l.pdf.SetFillColor(fill.r, fill.g, fill.b)
	l.pdf.Rect(x, y, w, h, "FD")
}

func (l *layout) bar(x, y, w, h float64, c rgb) {
	l.pdf.SetDrawColor(c.r, c.g, c.b)
	l.pdf.SetFillColor(c.r, c.g, c.b)
	l.pdf.Rect(x, y, w, h, "FD")
}

func (l *layout) font(size float64, style string, c rgb) {
	l.pdf.SetFont("Helvetica", style, size)
	l.pdf.SetTextColor(c.r, c.g, c.b)
}

// text draws one line with its top edge at y, shortened to fit w.
func (l *layout) text(x, y, w float64, s string, size float64, style string, c rgb, align string) {
	l.font(size, style, c)
	l.pdf.SetXY(x, y)
	l.pdf.CellFormat(w, size, l.fit(s, w), "", 0, align, false, 0, "")
}

func (l *layout) fit(s string, w float64) string {
	out := l.tr(s)
	if l.pdf.GetStringWidth(out) <= w {
		return out
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		out = l.tr(strings.TrimSpace(string(runes)) + "...")
		if l.pdf.GetStringWidth(out) <= w {
			return out
		}
	}
	return ""
}

func (l *layout) section(title string, y float64) {
	l.text(margin, y, contentWidth, title, 18, "B", primary, "L")
	l.bar(margin, y+25, contentWidth, 2, primary)
}

func (l *layout) header(id string) {
	l.bar(margin, margin, contentWidth, 80, primary)
	l.text(60, 75, 475, "MAINTENANCE CHECKLIST", 18, "B", white, "C")
	l.text(60, 105, 475, "Report ID: "+id, 9, "", white, "C")
}

func dateOf(cl Models.Checklist, now time.Time) string {
	if d := cl.Get(Models.FieldDate, Models.FieldInspectedDate); d != "" {
		return d
	}
	return now.Format("2006-01-02")
}

func (l *layout) equipment(cl Models.Checklist, now time.Time) float64 {
	const startY = 160.0
	l.text(margin, startY, contentWidth, "EQUIPMENT INFORMATION", 12, "B", primary, "L")
	l.bar(margin, startY+25, contentWidth, 2, primary)

	notSpecified := func(keys ...string) string {
		if v := cl.Get(keys...); v != "" {
			return v
		}
		return "Not specified"
	}
	fields := []struct{ label, value string }{
		{"Customer", notSpecified(Models.FieldCustomerName, "Customer")},
		{"Location", notSpecified(Models.FieldCountry, "Location")},
		{"Equipment Model", notSpecified(Models.FieldMachineType, "Equipment Model", "Model")},
		{"Serial Number", notSpecified(Models.FieldSerialNo, "Serial Number", "SerialNumber")},
		{"Technician", notSpecified(Models.FieldTechnicianName, "Technician", Models.FieldTechnicianID)},
		{"Date", dateOf(cl, now)},
	}

	y := startY + 40
	for i, f := range fields {
		x := margin
		if i%2 == 1 {
			x = 305
		}
		l.fillBox(x, y, 240, 30, lightGray)
		l.text(x+10, y+4, 220, strings.ToUpper(f.label), 8, "B", secondary, "L")
		l.text(x+10, y+15, 220, f.value, 9, "", ink, "L")
		if i%2 == 1 {
			y += 35
		}
	}
	return y
}

func (l *layout) tableHeader(y float64) float64 {
	l.fillBox(margin, y, contentWidth, 30, lightGray)
	l.text(60, y+10, 230, "Item", 9, "B", primary, "L")
	l.text(300, y+10, 90, "Status", 9, "B", primary, "L")
	l.text(400, y+10, 140, "Result", 9, "B", primary, "L")
	return y + 30
}

func (l *layout) items(rows []ItemRow, startY float64) float64 {
	l.section("CHECKLIST ITEMS", startY)
	y := l.tableHeader(startY + 40)

	if len(rows) == 0 {
		l.fillBox(margin, y, contentWidth, 60, placeholder)
		l.text(60, y+14, 475, "No checklist items found in the submitted data.", 14, "I", muted, "C")
		l.text(60, y+36, 475, "Please ensure checklist data is properly submitted with the request.", 12, "", mutedDark, "C")
		return y + 70
	}

	for _, row := range rows {
		if y > itemsBreakY {
			l.pdf.AddPage()
			y = l.tableHeader(margin)
		}
		l.fillBox(margin, y, contentWidth, 20, white)
		l.text(60, y+6, 230, row.Label, 8, "", labelInk, "L")
		l.text(300, y+6, 90, row.Status, 8, "B", ink, "L")
		l.text(400, y+6, 140, row.Result, 8, "B", ink, "L")
		y += 20
	}
	return y
}

const reviewLines = 6

func (l *layout) review(cl Models.Checklist, now time.Time, startY float64) {
	if startY > reviewBreakY {
		l.pdf.AddPage()
		startY = margin
	}
	l.section("TECHNICIAN REVIEW", startY)
	l.fillBox(margin, startY+40, contentWidth, 100, placeholder)

	if text := cl.Get("review", Models.FieldReview, "notes", Models.FieldNotes); text != "" {
		l.font(12, "", labelInk)
		lines := l.pdf.SplitLines([]byte(l.tr(text)), 475)
		if len(lines) > reviewLines {
			lines = lines[:reviewLines]
			lines[reviewLines-1] = append(lines[reviewLines-1], "..."...)
		}
		for i, line := range lines {
			l.pdf.SetXY(60, startY+50+float64(i)*14)
			l.pdf.CellFormat(475, 14, string(line), "", 0, "L", false, 0, "")
		}
	} else {
		l.text(60, startY+84, 475, "No review comments provided.", 12, "I", muted, "C")
	}

	sigY := startY + 170
	l.fillBox(margin, sigY, 240, 60, white)
	l.fillBox(305, sigY, 240, 60, white)
	l.text(60, sigY+10, 220, "TECHNICIAN SIGNATURE", 10, "B", secondary, "L")
	l.text(315, sigY+10, 220, "DATE COMPLETED", 10, "B", secondary, "L")
	l.text(60, sigY+35, 220, cl.Get(Models.FieldTechnicianName, "Technician", Models.FieldTechnicianID), 12, "", ink, "L")
	l.text(315, sigY+35, 220, dateOf(cl, now), 12, "", ink, "L")
}

func (l *layout) photos(photos []Photo) {
	if len(photos) == 0 {
		return
	}
	l.pdf.AddPage()
	l.text(margin, margin, contentWidth, "PHOTOGRAPHIC DOCUMENTATION", 24, "B", primary, "C")
	l.bar(margin, 85, contentWidth, 2, primary)

	y := 110.0
	for i, p := range photos {
		n := i + 1
		if y > photoBreakY {
			l.pdf.AddPage()
			y = margin
		}
		desc := p.Description
		if desc == "" {
			desc = "Equipment Documentation"
		}
		l.fillBox(margin, y, contentWidth, 30, lightGray)
		l.text(60, y+8, 475, fmt.Sprintf("Photo %d: %s", n, desc), 14, "B", labelInk, "L")
		y += 40
		y = l.photo(n, p, y)
	}
}

func (l *layout) photo(n int, p Photo, y float64) float64 {
	x := (pageWidth - photoWidth) / 2
	if p.Path == "" {
		return l.missingPhoto(x, y)
	}
	if _, err := os.Stat(p.Path); err != nil {
		return l.missingPhoto(x, y)
	}

	buf, w, h, err := loadJPEG(p.Path)
	if err != nil {
		log.Printf("[report] photo %d (%s): %v", n, p.Ref, err)
		return l.brokenPhoto(n, x, y)
	}
	name := fmt.Sprintf("photo-%d", n)
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	l.pdf.RegisterImageOptionsReader(name, opts, buf)
	if !l.pdf.Ok() {
		log.Printf("[report] photo %d (%s): %v", n, p.Ref, l.pdf.Error())
		l.pdf.ClearError()
		return l.brokenPhoto(n, x, y)
	}

	scale := photoWidth / float64(w)
	if s := photoHeight / float64(h); s < scale {
		scale = s
	}
	dw, dh := float64(w)*scale, float64(h)*scale
	l.fillBox(x-5, y-5, photoWidth+10, photoHeight+10, white)
	l.pdf.ImageOptions(name, x+(photoWidth-dw)/2, y+(photoHeight-dh)/2, dw, dh, false, opts, 0, "")
	return y + photoHeight + 30
}

func (l *layout) missingPhoto(x, y float64) float64 {
	l.fillBox(x, y, photoWidth, 200, missingFill)
	l.text(x, y+93, photoWidth, "Image not available", 14, "I", muted, "C")
	return y + 230
}

func (l *layout) brokenPhoto(n int, x, y float64) float64 {
	l.fillBox(x, y, photoWidth, 100, errorFill)
	l.text(x, y+44, photoWidth, fmt.Sprintf("Error loading Photo %d", n), 12, "", errorInk, "C")
	return y + 120
}

const maxEmbedDimension = 1600

// loadJPEG decodes any supported image, applies its EXIF orientation and
// re-encodes it as JPEG for embedding.
func loadJPEG(path string) (*bytes.Buffer, int, int, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, err
	}
	if b := img.Bounds(); b.Dx() > maxEmbedDimension || b.Dy() > maxEmbedDimension {
		img = imaging.Fit(img, maxEmbedDimension, maxEmbedDimension, imaging.Lanczos)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, 0, 0, fmt.Errorf("empty image")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, 0, 0, err
	}
	return &buf, b.Dx(), b.Dy(), nil
}
