package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/alexkarpov/image-hosting/internal/model"
	imagerepo "github.com/alexkarpov/image-hosting/internal/repository/image"
)

// ErrUnsupportedFormat is returned for uploads that are not png or jpeg.
var ErrUnsupportedFormat = errors.New("this file format is not accepted")

// ErrInvalidMetadata is returned when a stored image row fails validation.
var ErrInvalidMetadata = errors.New("image has invalid metadata")

const bytesPerMB = 1e6

// repository defines the metadata store operations used by the service.
type repository interface {
	SaveImage(ctx context.Context, img model.Image) (uuid.UUID, error)
	GetImage(ctx context.Context, id uuid.UUID) (model.Image, error)
	ListImageIDs(ctx context.Context) ([]uuid.UUID, error)
	UpdateImage(ctx context.Context, id uuid.UUID, img model.Image) error
	DeleteImage(ctx context.Context, id uuid.UUID) error
}

// fileStorage defines the file operations used by the service.
type fileStorage interface {
	Save(filename string, src io.Reader) (string, error)
	Open(path string) (io.ReadCloser, error)
	Exists(path string) bool
	Size(path string) (int64, error)
	Remove(path string) error
}

// jobPublisher dispatches modification jobs to the worker queue.
type jobPublisher interface {
	Dispatch(ctx context.Context, job model.Job) error
}

// logPublisher emits best-effort telemetry onto logging.database.
type logPublisher interface {
	Error(ctx context.Context, text string)
	Critical(ctx context.Context, text string)
}

// Service provides the business logic for image operations: storing files,
// keeping metadata rows in sync, and dispatching modification jobs.
type Service struct {
	repo    repository
	storage fileStorage
	jobs    jobPublisher
	logs    logPublisher
}

// NewService creates a new Service.
func NewService(repo repository, fs fileStorage, jobs jobPublisher, logs logPublisher) *Service {
	return &Service{repo: repo, storage: fs, jobs: jobs, logs: logs}
}

// SaveImage validates and decodes the upload, stores the file under the
// image's new ID, and inserts the metadata row. The stored extension comes
// from the decoded format, not the filename, in case the two disagree.
func (s *Service) SaveImage(ctx context.Context, filename string, file io.Reader) (model.Image, error) {
	img, data, err := decodeUpload(filename, file)
	if err != nil {
		return model.Image{}, err
	}

	id, err := s.repo.SaveImage(ctx, img)
	if err != nil {
		s.logs.Error(ctx, fmt.Sprintf("Could not post image to database, reason: %v", err))
		return model.Image{}, fmt.Errorf("save image: %w", err)
	}

	path, err := s.storage.Save(fmt.Sprintf("%s.%s", id, img.Format), bytes.NewReader(data))
	if err != nil {
		// Roll back the row so the database never references a missing file.
		if delErr := s.repo.DeleteImage(ctx, id); delErr != nil {
			s.logs.Error(ctx, fmt.Sprintf("Could not delete image from database, reason: %v", delErr))
		}
		s.logs.Error(ctx, fmt.Sprintf("Could not post image to database, reason: %v", err))
		return model.Image{}, fmt.Errorf("save file: %w", err)
	}

	img.ID = id
	img.Path = path

	if err := s.repo.UpdateImage(ctx, id, img); err != nil {
		s.logs.Error(ctx, fmt.Sprintf("Could not post image to database, reason: %v", err))
		return model.Image{}, fmt.Errorf("update path: %w", err)
	}

	return img, nil
}

// ListImageIDs returns the IDs of all stored images.
func (s *Service) ListImageIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.repo.ListImageIDs(ctx)
	if err != nil {
		s.logs.Error(ctx, "Could not read image ids from database")
		return nil, fmt.Errorf("list images: %w", err)
	}

	return ids, nil
}

// GetImage returns the metadata row for an image.
func (s *Service) GetImage(ctx context.Context, id uuid.UUID) (model.Image, error) {
	img, err := s.repo.GetImage(ctx, id)
	if err != nil {
		if errors.Is(err, imagerepo.ErrImageNotFound) {
			return model.Image{}, err
		}

		s.logs.Error(ctx, fmt.Sprintf("Image could not be fetched, reason: %v", err))
		return model.Image{}, fmt.Errorf("get image: %w", err)
	}

	if err := validateMetadata(img); err != nil {
		s.logs.Error(ctx, "Image has invalid metadata")
		return model.Image{}, err
	}

	return img, nil
}

// OpenImage returns the metadata and a reader over the stored file.
func (s *Service) OpenImage(ctx context.Context, id uuid.UUID) (model.Image, io.ReadCloser, error) {
	img, err := s.GetImage(ctx, id)
	if err != nil {
		return model.Image{}, nil, err
	}

	reader, err := s.storage.Open(img.Path)
	if err != nil {
		s.logs.Error(ctx, fmt.Sprintf("Image could not be fetched, reason: %v", err))
		return model.Image{}, nil, fmt.Errorf("open image: %w", err)
	}

	return img, reader, nil
}

// ReplaceImage overwrites an existing image's file and metadata with a new
// upload, keeping the same ID. If the stored row itself is invalid, the
// operation is halted and reported as CRITICAL for investigation.
func (s *Service) ReplaceImage(ctx context.Context, id uuid.UUID, filename string, file io.Reader) (model.Image, error) {
	prev, err := s.repo.GetImage(ctx, id)
	if err != nil {
		if errors.Is(err, imagerepo.ErrImageNotFound) {
			return model.Image{}, err
		}

		s.logs.Error(ctx, fmt.Sprintf("Could not update image data, reason: %v", err))
		return model.Image{}, fmt.Errorf("replace image: %w", err)
	}

	if err := validateMetadata(prev); err != nil {
		s.logs.Critical(ctx, fmt.Sprintf("Invalid image data detected in database at %s", id))
		return model.Image{}, err
	}

	img, data, err := decodeUpload(filename, file)
	if err != nil {
		return model.Image{}, err
	}

	path, err := s.storage.Save(fmt.Sprintf("%s.%s", id, img.Format), bytes.NewReader(data))
	if err != nil {
		s.logs.Error(ctx, fmt.Sprintf("Could not update image data, reason: %v", err))
		return model.Image{}, fmt.Errorf("replace file: %w", err)
	}

	img.ID = id
	img.Path = path

	if err := s.repo.UpdateImage(ctx, id, img); err != nil {
		s.logs.Error(ctx, fmt.Sprintf("Could not update image data, reason: %v", err))
		return model.Image{}, fmt.Errorf("replace metadata: %w", err)
	}

	// The replacement may have changed the extension; drop the old file if
	// its path differs.
	if prev.Path != "" && prev.Path != path {
		if err := s.storage.Remove(prev.Path); err != nil {
			s.logs.Error(ctx, fmt.Sprintf("Could not update image data, reason: %v", err))
		}
	}

	return img, nil
}

// ModifyImage dispatches a modification job for the image and refreshes the
// stored metadata from the file. The workers write the image to disk and
// return nothing, so the refreshed metadata usually still describes the
// pre-modification file; callers that need the final state re-read it later.
func (s *Service) ModifyImage(ctx context.Context, id uuid.UUID, ops model.Operations) error {
	img, err := s.repo.GetImage(ctx, id)
	if err != nil {
		if errors.Is(err, imagerepo.ErrImageNotFound) {
			return err
		}

		s.logs.Error(ctx, fmt.Sprintf("Could not find image on server, reason: %v", err))
		return fmt.Errorf("modify image: %w", err)
	}

	if !s.storage.Exists(img.Path) {
		s.logs.Error(ctx, fmt.Sprintf("Could not find image on server, reason: no file at %s", img.Path))
		return imagerepo.ErrImageNotFound
	}

	job := model.Job{ImagePath: img.Path, Operations: ops}
	if err := s.jobs.Dispatch(ctx, job); err != nil {
		s.logs.Error(ctx, fmt.Sprintf("Could not dispatch modification job, reason: %v", err))
		return fmt.Errorf("dispatch job: %w", err)
	}

	if err := s.refreshMetadata(ctx, id, img); err != nil {
		s.logs.Error(ctx, fmt.Sprintf("Image data could not be updated, reason: %v", err))
		return fmt.Errorf("refresh metadata: %w", err)
	}

	return nil
}

// DeleteImage removes the stored file and the metadata row.
func (s *Service) DeleteImage(ctx context.Context, id uuid.UUID) error {
	img, err := s.repo.GetImage(ctx, id)
	if err != nil {
		if errors.Is(err, imagerepo.ErrImageNotFound) {
			return err
		}

		s.logs.Error(ctx, fmt.Sprintf("Could not delete image from database, reason: %v", err))
		return fmt.Errorf("delete image: %w", err)
	}

	if err := s.storage.Remove(img.Path); err != nil {
		s.logs.Error(ctx, fmt.Sprintf("Could not delete image from database, reason: %v", err))
		return fmt.Errorf("delete file: %w", err)
	}

	if err := s.repo.DeleteImage(ctx, id); err != nil {
		s.logs.Error(ctx, fmt.Sprintf("Could not delete image from database, reason: %v", err))
		return fmt.Errorf("delete metadata: %w", err)
	}

	return nil
}

// refreshMetadata re-reads the file at the image's path and updates the row
// with its current size and dimensions.
func (s *Service) refreshMetadata(ctx context.Context, id uuid.UUID, img model.Image) error {
	size, err := s.storage.Size(img.Path)
	if err != nil {
		return err
	}

	reader, err := s.storage.Open(img.Path)
	if err != nil {
		return err
	}
	defer reader.Close()

	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return fmt.Errorf("decode image config: %w", err)
	}

	img.SizeMB = float64(size) / bytesPerMB
	img.Width = cfg.Width
	img.Height = cfg.Height

	return s.repo.UpdateImage(ctx, id, img)
}

// decodeUpload validates the upload's extension and content and returns the
// metadata plus the raw bytes to store.
func decodeUpload(filename string, file io.Reader) (model.Image, []byte, error) {
	if !isAcceptedFormat(extension(filename)) {
		return model.Image{}, nil, ErrUnsupportedFormat
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return model.Image{}, nil, fmt.Errorf("read upload: %w", err)
	}

	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return model.Image{}, nil, fmt.Errorf("image could not be loaded and might be corrupted: %w", err)
	}

	// Trust the decoded format over the filename in case of a mismatch.
	if !isAcceptedFormat(format) {
		return model.Image{}, nil, ErrUnsupportedFormat
	}

	bounds := decoded.Bounds()
	img := model.Image{
		SizeMB: float64(len(data)) / bytesPerMB,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
	}

	return img, data, nil
}

func validateMetadata(img model.Image) error {
	if img.Path == "" || img.Format == "" || img.Width < 1 || img.Height < 1 {
		return ErrInvalidMetadata
	}

	return nil
}

func extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

func isAcceptedFormat(format string) bool {
	switch format {
	case "png", "jpg", "jpeg":
		return true
	default:
		return false
	}
}
