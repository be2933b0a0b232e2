package Controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"Maintenance/Storage"
	"Maintenance/middleware"
)

// PhotoController handles photo upload and the image proxy
type PhotoController struct {
	Store         Storage.PhotoStore
	ReferenceMode string
	Production    bool
}

// NewPhotoController creates a new PhotoController
func NewPhotoController(store Storage.PhotoStore, mode string, production bool) *PhotoController {
	return &PhotoController{Store: store, ReferenceMode: mode, Production: production}
}

func formImage(ctx *fiber.Ctx) (*multipart.FileHeader, error) {
	file, err := ctx.FormFile("file")
	if err == nil {
		return file, nil
	}
	return ctx.FormFile("image")
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, Storage.MaxPhotoBytes+1))
}

// UploadImage normalizes an uploaded photo and stores it
func (c *PhotoController) UploadImage(ctx *fiber.Ctx) error {
	file, err := formImage(ctx)
	if err != nil {
		return badRequest(ctx, "no image uploaded; send multipart field file or image")
	}
	if !Storage.IsImage(file.Header.Get(fiber.HeaderContentType)) {
		return badRequest(ctx, "only image uploads are accepted")
	}
	if file.Size > Storage.MaxPhotoBytes {
		return ctx.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"status":  "error",
			"message": fmt.Sprintf("image exceeds %d MB", Storage.MaxPhotoBytes>>20),
		})
	}

	data, err := readUpload(file)
	if err != nil {
		return writeError(ctx, err, c.Production)
	}
	normalized, err := Storage.NormalizeImage(data)
	if err != nil {
		return badRequest(ctx, "image could not be decoded")
	}

	base := strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	name := fmt.Sprintf("%d_%s.jpg", time.Now().UnixMilli(), base)
	obj, err := c.Store.Upload(ctx.UserContext(), name, "image/jpeg", normalized)
	if err != nil {
		return writeError(ctx, err, c.Production)
	}
	middleware.PhotosUploaded.Inc()

	return ctx.JSON(fiber.Map{
		"status": "success",
		"fileId": obj.ID,
		"url":    Storage.Reference(c.ReferenceMode, obj),
	})
}

// GetImage streams a stored photo
func (c *PhotoController) GetImage(ctx *fiber.Ctx) error {
	id := ctx.Query("fileId")
	if id == "" {
		return badRequest(ctx, "fileId is required")
	}
	body, contentType, err := c.Store.Open(ctx.UserContext(), id)
	if err != nil {
		return writeError(ctx, err, c.Production)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx.Set(fiber.HeaderContentType, contentType)
	ctx.Set(fiber.HeaderCacheControl, "private, max-age=86400")
	return ctx.SendStream(body)
}
