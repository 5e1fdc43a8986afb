package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/chalkcast/appserver/internal/domain"
)

// ErrNotFound is returned when the addressed lecture does not exist.
var ErrNotFound = errors.New("lecture not found")

// PollFields carries the patchable poll fields. Nil means "leave as is".
type PollFields struct {
	Name  *string
	Multi *bool
	Note  *string
}

func (f PollFields) Empty() bool {
	return f.Name == nil && f.Multi == nil && f.Note == nil
}

// NotebookFields carries the patchable notebook metadata fields.
type NotebookFields struct {
	Name            *string
	PresentDownload *string
	Note            *string
}

func (f NotebookFields) Empty() bool {
	return f.Name == nil && f.PresentDownload == nil && f.Note == nil
}

// ListSelector narrows a lecture listing to a course and/or an owner.
// At least one of the two must be set.
type ListSelector struct {
	LMS       *domain.LMSRef
	OwnerUUID string
}

// LectureSnapshot is the bundle of state the "lecture" copy selector
// transfers between lectures. Nil slices and false flags are skipped.
type LectureSnapshot struct {
	BackgroundInUse bool
	BackgroundDoc   *domain.BackgroundDocument
	BoardSaveTime   int64
	UsedPictures    []domain.Asset
	UsedNotebooks   []domain.Notebook
}

// Store is the persistent document store contract. Every mutation is
// scoped to a single document and atomic within it; the two-step upsert
// discipline (Ensure* then Patch*) lives in the caller. All mutations
// stamp the document's lastaccess timestamp.
type Store interface {
	Lecture(ctx context.Context, lectureUUID string) (*domain.LectureDocument, error)
	List(ctx context.Context, sel ListSelector) ([]domain.LectureSummary, error)

	SetDate(ctx context.Context, lectureUUID string, date time.Time) error
	SetOwnersDisplayNames(ctx context.Context, lectureUUID string, names []string) error

	// Course-wide patches address every lecture sharing the LMS course.
	SetCourseAppVersion(ctx context.Context, lms domain.LMSRef, appVersion string) error
	SetCourseFeatures(ctx context.Context, lms domain.LMSRef, features []string) error

	// Poll forest. parentID == "" addresses the top level. Ensure is a
	// guarded set-semantics insert and a no-op when the id exists.
	EnsurePoll(ctx context.Context, lectureUUID, parentID, pollID string) error
	PatchPoll(ctx context.Context, lectureUUID, parentID, pollID string, fields PollFields) error
	PullPoll(ctx context.Context, lectureUUID, parentID, pollID string) error
	PullPollsByID(ctx context.Context, lectureUUID string, ids []string) error
	PushPolls(ctx context.Context, lectureUUID string, polls []domain.Poll) error

	// Notebook set, unique by id.
	EnsureNotebook(ctx context.Context, lectureUUID, notebookID string) error
	ReplaceNotebook(ctx context.Context, lectureUUID string, nb domain.Notebook) error
	PatchNotebookMeta(ctx context.Context, lectureUUID, notebookID string, fields NotebookFields) error
	SetAppletVisibility(ctx context.Context, lectureUUID, notebookID, appID string, present bool) error
	PullNotebook(ctx context.Context, lectureUUID, notebookID string) error
	PullNotebooksByID(ctx context.Context, lectureUUID string, ids []string) error
	PushNotebooks(ctx context.Context, lectureUUID string, nbs []domain.Notebook) error

	// Picture set with structural set-semantics add.
	AddPictures(ctx context.Context, lectureUUID string, pics []domain.Asset) error

	// Background document.
	SetBackground(ctx context.Context, lectureUUID, name string, sha domain.ContentHash) error
	ResetBackground(ctx context.Context, lectureUUID string) error

	SetLectureSnapshot(ctx context.Context, lectureUUID string, snap LectureSnapshot) error

	// Router capacity records for the cluster snapshot.
	Routers(ctx context.Context) ([]domain.RouterStatus, error)
}
