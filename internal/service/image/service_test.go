package image

import (
	"bytes"
	"context"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkarpov/image-hosting/internal/model"
	imagerepo "github.com/alexkarpov/image-hosting/internal/repository/image"
	"github.com/alexkarpov/image-hosting/internal/storage/file"
)

// fakeRepo keeps image rows in memory.
type fakeRepo struct {
	rows    map[uuid.UUID]model.Image
	updates int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[uuid.UUID]model.Image)}
}

func (f *fakeRepo) SaveImage(ctx context.Context, img model.Image) (uuid.UUID, error) {
	id := uuid.New()
	img.ID = id
	f.rows[id] = img
	return id, nil
}

func (f *fakeRepo) GetImage(ctx context.Context, id uuid.UUID) (model.Image, error) {
	img, ok := f.rows[id]
	if !ok {
		return model.Image{}, imagerepo.ErrImageNotFound
	}
	return img, nil
}

func (f *fakeRepo) ListImageIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range f.rows {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRepo) UpdateImage(ctx context.Context, id uuid.UUID, img model.Image) error {
	if _, ok := f.rows[id]; !ok {
		return imagerepo.ErrImageNotFound
	}
	img.ID = id
	f.rows[id] = img
	f.updates++
	return nil
}

func (f *fakeRepo) DeleteImage(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok {
		return imagerepo.ErrImageNotFound
	}
	delete(f.rows, id)
	return nil
}

// fakeJobs records dispatched jobs.
type fakeJobs struct {
	jobs []model.Job
}

func (f *fakeJobs) Dispatch(ctx context.Context, job model.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

// fakeLogs records emitted telemetry.
type fakeLogs struct {
	errors    []string
	criticals []string
}

func (f *fakeLogs) Error(ctx context.Context, text string) {
	f.errors = append(f.errors, text)
}

func (f *fakeLogs) Critical(ctx context.Context, text string) {
	f.criticals = append(f.criticals, text)
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	img := imaging.New(width, height, color.White)
	require.NoError(t, imaging.Encode(buf, img, imaging.PNG))

	return buf.Bytes()
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeJobs, *fakeLogs) {
	t.Helper()

	storage, err := file.NewStorage(t.TempDir())
	require.NoError(t, err)

	repo := newFakeRepo()
	jobs := &fakeJobs{}
	logs := &fakeLogs{}

	return NewService(repo, storage, jobs, logs), repo, jobs, logs
}

func TestService_SaveImage(t *testing.T) {
	s, repo, _, logs := newTestService(t)

	img, err := s.SaveImage(context.Background(), "photo.PNG", bytes.NewReader(pngBytes(t, 30, 20)))
	require.NoError(t, err)

	assert.Equal(t, "png", img.Format)
	assert.Equal(t, 30, img.Width)
	assert.Equal(t, 20, img.Height)
	assert.Contains(t, img.Path, img.ID.String()+".png")

	stored, err := repo.GetImage(context.Background(), img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.Path, stored.Path)

	assert.Empty(t, logs.errors)
}

func TestService_SaveImageRejectsUnsupportedExtension(t *testing.T) {
	s, repo, _, _ := newTestService(t)

	_, err := s.SaveImage(context.Background(), "doc.gif", strings.NewReader("whatever"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Empty(t, repo.rows)
}

func TestService_SaveImageRejectsCorruptContent(t *testing.T) {
	s, repo, _, _ := newTestService(t)

	_, err := s.SaveImage(context.Background(), "photo.png", strings.NewReader("not a png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupted")
	assert.Empty(t, repo.rows)
}

func TestService_ModifyImageDispatchesJob(t *testing.T) {
	s, repo, jobs, logs := newTestService(t)

	img, err := s.SaveImage(context.Background(), "photo.png", bytes.NewReader(pngBytes(t, 30, 20)))
	require.NoError(t, err)

	width := 100
	err = s.ModifyImage(context.Background(), img.ID, model.Operations{Width: &width, Grayscale: true})
	require.NoError(t, err)

	require.Len(t, jobs.jobs, 1)
	assert.Equal(t, img.Path, jobs.jobs[0].ImagePath)
	require.NotNil(t, jobs.jobs[0].Operations.Width)
	assert.Equal(t, 100, *jobs.jobs[0].Operations.Width)

	// Metadata was refreshed from the file on disk; the workers return
	// nothing, so nothing else is waited on.
	assert.Empty(t, logs.errors)
	assert.Greater(t, repo.updates, 1)
}

func TestService_ModifyImageMissingFile(t *testing.T) {
	s, repo, jobs, logs := newTestService(t)

	id, err := repo.SaveImage(context.Background(), model.Image{
		Path: "storage/gone.png", Format: "png", Width: 1, Height: 1,
	})
	require.NoError(t, err)

	err = s.ModifyImage(context.Background(), id, model.Operations{Grayscale: true})
	require.ErrorIs(t, err, imagerepo.ErrImageNotFound)

	assert.Empty(t, jobs.jobs, "no job may be dispatched for a missing file")
	require.Len(t, logs.errors, 1)
	assert.Contains(t, logs.errors[0], "Could not find image on server")
}

func TestService_ReplaceImageHaltsOnInvalidStoredMetadata(t *testing.T) {
	s, repo, _, logs := newTestService(t)

	id, err := repo.SaveImage(context.Background(), model.Image{Path: "", Format: ""})
	require.NoError(t, err)

	_, err = s.ReplaceImage(context.Background(), id, "photo.png", bytes.NewReader(pngBytes(t, 4, 4)))
	require.ErrorIs(t, err, ErrInvalidMetadata)

	require.Len(t, logs.criticals, 1)
	assert.Contains(t, logs.criticals[0], "Invalid image data detected in database at "+id.String())
}

func TestService_DeleteImageRemovesFileAndRow(t *testing.T) {
	s, repo, _, _ := newTestService(t)

	img, err := s.SaveImage(context.Background(), "photo.png", bytes.NewReader(pngBytes(t, 4, 4)))
	require.NoError(t, err)

	require.NoError(t, s.DeleteImage(context.Background(), img.ID))

	_, err = repo.GetImage(context.Background(), img.ID)
	require.ErrorIs(t, err, imagerepo.ErrImageNotFound)
}
