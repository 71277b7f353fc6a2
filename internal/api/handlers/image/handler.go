package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/alexkarpov/image-hosting/internal/api/respond"
	"github.com/alexkarpov/image-hosting/internal/model"
	imagerepo "github.com/alexkarpov/image-hosting/internal/repository/image"
	imagesvc "github.com/alexkarpov/image-hosting/internal/service/image"
)

// service defines the interface for image-related operations.
type service interface {
	SaveImage(ctx context.Context, filename string, file io.Reader) (model.Image, error)
	ListImageIDs(ctx context.Context) ([]uuid.UUID, error)
	GetImage(ctx context.Context, id uuid.UUID) (model.Image, error)
	OpenImage(ctx context.Context, id uuid.UUID) (model.Image, io.ReadCloser, error)
	ReplaceImage(ctx context.Context, id uuid.UUID, filename string, file io.Reader) (model.Image, error)
	ModifyImage(ctx context.Context, id uuid.UUID, ops model.Operations) error
	DeleteImage(ctx context.Context, id uuid.UUID) error
}

// Handler provides HTTP handlers for image-related endpoints.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// List returns the IDs of all stored images.
func (h *Handler) List(c *ginext.Context) {
	ids, err := h.service.ListImageIDs(c.Request.Context())
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to list images")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("database error"))
		return
	}

	respond.OK(c, ids)
}

// Upload handles the HTTP request for uploading an image. It reads the
// multipart form, saves the file and metadata via the service, and responds
// with the stored image info.
func (h *Handler) Upload(c *ginext.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to upload the file")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to retrieve the file"))
		return
	}
	defer file.Close()

	img, err := h.service.SaveImage(c.Request.Context(), header.Filename, file)
	if err != nil {
		h.failUpload(c, err)
		return
	}

	respond.Created(c, img)
}

// GetMeta returns metadata about the image without serving the file itself.
func (h *Handler) GetMeta(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	img, err := h.service.GetImage(c.Request.Context(), id)
	if err != nil {
		h.failLookup(c, err)
		return
	}

	respond.OK(c, img)
}

// GetFile serves the stored image bytes.
func (h *Handler) GetFile(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	img, reader, err := h.service.OpenImage(c.Request.Context(), id)
	if err != nil {
		h.failLookup(c, err)
		return
	}
	defer reader.Close()

	respond.Image(c, http.StatusOK, "image/"+img.Format, reader)
}

// Modify validates the requested operations and queues a modification job.
// The job is fire-and-forget: workers write the modified file to disk and
// return nothing, so the response only confirms that the job was queued.
func (h *Handler) Modify(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var ops model.Operations
	if err := c.ShouldBindJSON(&ops); err != nil {
		zlog.Logger.Err(err).Msg("failed to parse modifications")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid modification body"))
		return
	}

	if err := ops.Validate(); err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	if err := h.service.ModifyImage(c.Request.Context(), id, ops); err != nil {
		if errors.Is(err, imagerepo.ErrImageNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("could not find image"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to modify the image")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("image data could not be updated"))
		return
	}

	respond.OK(c, map[string]interface{}{"detail": "Image modified successfully!"})
}

// Replace overwrites an existing image with a new upload, keeping its ID.
func (h *Handler) Replace(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to upload the file")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to retrieve the file"))
		return
	}
	defer file.Close()

	img, err := h.service.ReplaceImage(c.Request.Context(), id, header.Filename, file)
	if err != nil {
		if errors.Is(err, imagesvc.ErrInvalidMetadata) {
			respond.Fail(c, http.StatusInternalServerError, fmt.Errorf(
				"image previously had invalid data saved, therefore the operation was halted for investigation"))
			return
		}

		h.failUpload(c, err)
		return
	}

	respond.OK(c, img)
}

// Delete removes an image by ID.
func (h *Handler) Delete(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteImage(c.Request.Context(), id); err != nil {
		if errors.Is(err, imagerepo.ErrImageNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("image does not exist"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to delete the image")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("could not delete image from database"))
		return
	}

	respond.OK(c, map[string]interface{}{"detail": "Image deleted successfully"})
}

// failUpload maps upload/replace errors to HTTP responses.
func (h *Handler) failUpload(c *ginext.Context, err error) {
	switch {
	case errors.Is(err, imagesvc.ErrUnsupportedFormat):
		respond.Fail(c, http.StatusBadRequest, err)
	case errors.Is(err, imagerepo.ErrImageNotFound):
		respond.Fail(c, http.StatusNotFound, fmt.Errorf("image not found"))
	default:
		zlog.Logger.Err(err).Msg("failed to save the image")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("file could not be saved"))
	}
}

// failLookup maps read-path errors to HTTP responses.
func (h *Handler) failLookup(c *ginext.Context, err error) {
	switch {
	case errors.Is(err, imagerepo.ErrImageNotFound):
		respond.Fail(c, http.StatusNotFound, fmt.Errorf("image not found"))
	case errors.Is(err, imagesvc.ErrInvalidMetadata):
		respond.Fail(c, http.StatusBadRequest, err)
	default:
		zlog.Logger.Err(err).Msg("failed to get image")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("image could not be fetched"))
	}
}

func parseID(c *ginext.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	if idStr == "" {
		zlog.Logger.Warn().Msg("missing id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("missing id"))
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to parse id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid image id"))
		return uuid.Nil, false
	}

	return id, true
}
