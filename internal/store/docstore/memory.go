package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chalkcast/appserver/internal/domain"
)

// Memory is an in-process Store with the same per-document atomicity and
// set/pull semantics as the Mongo implementation. It backs the service
// tests and small single-node deployments.
type Memory struct {
	mu       sync.Mutex
	lectures map[string]*domain.LectureDocument
	routers  []domain.RouterStatus
}

func NewMemory() *Memory {
	return &Memory{lectures: make(map[string]*domain.LectureDocument)}
}

// Put seeds or replaces a whole lecture document.
func (m *Memory) Put(doc *domain.LectureDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lectures[doc.UUID] = cloneLecture(doc)
}

// AddRouter seeds one router capacity record.
func (m *Memory) AddRouter(r domain.RouterStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routers = append(m.routers, r)
}

func (m *Memory) Lecture(ctx context.Context, lectureUUID string) (*domain.LectureDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.lectures[lectureUUID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneLecture(doc), nil
}

func (m *Memory) List(ctx context.Context, sel ListSelector) ([]domain.LectureSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LectureSummary
	for _, doc := range m.lectures {
		match := false
		if sel.LMS != nil && sel.LMS.CourseID != "" && sel.LMS.PlatformID != "" &&
			doc.LMS.CourseID == sel.LMS.CourseID && doc.LMS.PlatformID == sel.LMS.PlatformID {
			match = true
		}
		if !match && sel.OwnerUUID != "" && doc.OwnedBy(sel.OwnerUUID) {
			match = true
		}
		if match {
			out = append(out, domain.LectureSummary{
				UUID:        doc.UUID,
				Title:       doc.Title,
				CourseTitle: doc.CourseTitle,
				Date:        doc.Date,
				LMS:         domain.LMSRef{CourseID: doc.LMS.CourseID},
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LMS.CourseID != out[j].LMS.CourseID {
			return out[i].LMS.CourseID > out[j].LMS.CourseID
		}
		if out[i].CourseTitle != out[j].CourseTitle {
			return out[i].CourseTitle < out[j].CourseTitle
		}
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

// mutate runs fn under the lock against the live document, stamping
// lastaccess. A missing document is a silent no-op, matching the
// filter-miss behavior of the real store's UpdateOne.
func (m *Memory) mutate(lectureUUID string, fn func(doc *domain.LectureDocument)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.lectures[lectureUUID]
	if !ok {
		return nil
	}
	fn(doc)
	doc.LastAccess = time.Now()
	return nil
}

func (m *Memory) SetDate(ctx context.Context, lectureUUID string, date time.Time) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		doc.Date = date
	})
}

func (m *Memory) SetOwnersDisplayNames(ctx context.Context, lectureUUID string, names []string) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		doc.OwnersDisplayNames = append([]string(nil), names...)
	})
}

func (m *Memory) SetCourseAppVersion(ctx context.Context, lms domain.LMSRef, appVersion string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.lectures {
		if doc.LMS.Issuer == lms.Issuer && doc.LMS.CourseID == lms.CourseID {
			doc.AppVersion = appVersion
			doc.LastAccess = time.Now()
		}
	}
	return nil
}

func (m *Memory) SetCourseFeatures(ctx context.Context, lms domain.LMSRef, features []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.lectures {
		if doc.LMS.Issuer == lms.Issuer && doc.LMS.CourseID == lms.CourseID {
			doc.Features = append([]string(nil), features...)
			doc.LastAccess = time.Now()
		}
	}
	return nil
}

func (m *Memory) EnsurePoll(ctx context.Context, lectureUUID, parentID, pollID string) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		if parentID == "" {
			for i := range doc.Polls {
				if doc.Polls[i].ID == pollID {
					return
				}
			}
			doc.Polls = append(doc.Polls, domain.Poll{ID: pollID})
			return
		}
		for i := range doc.Polls {
			for j := range doc.Polls[i].Children {
				if doc.Polls[i].Children[j].ID == pollID {
					return
				}
			}
		}
		for i := range doc.Polls {
			if doc.Polls[i].ID == parentID {
				doc.Polls[i].Children = append(doc.Polls[i].Children, domain.Poll{ID: pollID})
				return
			}
		}
	})
}

func (m *Memory) PatchPoll(ctx context.Context, lectureUUID, parentID, pollID string, fields PollFields) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		var target *domain.Poll
		if parentID == "" {
			for i := range doc.Polls {
				if doc.Polls[i].ID == pollID {
					target = &doc.Polls[i]
					break
				}
			}
		} else {
			for i := range doc.Polls {
				if doc.Polls[i].ID != parentID {
					continue
				}
				for j := range doc.Polls[i].Children {
					if doc.Polls[i].Children[j].ID == pollID {
						target = &doc.Polls[i].Children[j]
						break
					}
				}
			}
		}
		if target == nil {
			return
		}
		if fields.Name != nil {
			target.Name = *fields.Name
		}
		if fields.Multi != nil {
			target.Multi = *fields.Multi
		}
		if fields.Note != nil {
			target.Note = *fields.Note
		}
	})
}

func (m *Memory) PullPoll(ctx context.Context, lectureUUID, parentID, pollID string) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		if parentID == "" {
			doc.Polls = filterPolls(doc.Polls, pollID)
			return
		}
		for i := range doc.Polls {
			doc.Polls[i].Children = filterPolls(doc.Polls[i].Children, pollID)
		}
	})
}

func filterPolls(polls []domain.Poll, dropID string) []domain.Poll {
	out := polls[:0]
	for _, p := range polls {
		if p.ID != dropID {
			out = append(out, p)
		}
	}
	return out
}

func (m *Memory) PullPollsByID(ctx context.Context, lectureUUID string, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		out := doc.Polls[:0]
		for _, p := range doc.Polls {
			if !drop[p.ID] {
				out = append(out, p)
			}
		}
		doc.Polls = out
	})
}

func (m *Memory) PushPolls(ctx context.Context, lectureUUID string, polls []domain.Poll) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		doc.Polls = append(doc.Polls, clonePolls(polls)...)
	})
}

func (m *Memory) EnsureNotebook(ctx context.Context, lectureUUID, notebookID string) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		for i := range doc.Notebooks {
			if doc.Notebooks[i].ID == notebookID {
				return
			}
		}
		doc.Notebooks = append(doc.Notebooks, domain.Notebook{ID: notebookID})
	})
}

func (m *Memory) ReplaceNotebook(ctx context.Context, lectureUUID string, nb domain.Notebook) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		for i := range doc.Notebooks {
			if doc.Notebooks[i].ID == nb.ID {
				doc.Notebooks[i] = cloneNotebook(nb)
				return
			}
		}
	})
}

func (m *Memory) PatchNotebookMeta(ctx context.Context, lectureUUID, notebookID string, fields NotebookFields) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		for i := range doc.Notebooks {
			if doc.Notebooks[i].ID != notebookID {
				continue
			}
			if fields.Name != nil {
				doc.Notebooks[i].Name = *fields.Name
			}
			if fields.PresentDownload != nil {
				doc.Notebooks[i].PresentDownload = *fields.PresentDownload
			}
			if fields.Note != nil {
				doc.Notebooks[i].Note = *fields.Note
			}
			return
		}
	})
}

func (m *Memory) SetAppletVisibility(ctx context.Context, lectureUUID, notebookID, appID string, present bool) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		for i := range doc.Notebooks {
			if doc.Notebooks[i].ID != notebookID {
				continue
			}
			for j := range doc.Notebooks[i].Applets {
				if doc.Notebooks[i].Applets[j].AppID == appID {
					doc.Notebooks[i].Applets[j].PresentToStudents = present
				}
			}
		}
	})
}

func (m *Memory) PullNotebook(ctx context.Context, lectureUUID, notebookID string) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		out := doc.Notebooks[:0]
		for _, nb := range doc.Notebooks {
			if nb.ID != notebookID {
				out = append(out, nb)
			}
		}
		doc.Notebooks = out
	})
}

func (m *Memory) PullNotebooksByID(ctx context.Context, lectureUUID string, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		out := doc.Notebooks[:0]
		for _, nb := range doc.Notebooks {
			if !drop[nb.ID] {
				out = append(out, nb)
			}
		}
		doc.Notebooks = out
	})
}

func (m *Memory) PushNotebooks(ctx context.Context, lectureUUID string, nbs []domain.Notebook) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		doc.Notebooks = append(doc.Notebooks, cloneNotebooks(nbs)...)
	})
}

func (m *Memory) AddPictures(ctx context.Context, lectureUUID string, pics []domain.Asset) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		for _, pic := range pics {
			exists := false
			for _, have := range doc.Pictures {
				if have.Name == pic.Name && have.MimeType == pic.MimeType &&
					have.Sha.Equal(pic.Sha) && have.ThumbSha.Equal(pic.ThumbSha) {
					exists = true
					break
				}
			}
			if !exists {
				doc.Pictures = append(doc.Pictures, cloneAsset(pic))
			}
		}
	})
}

func (m *Memory) SetBackground(ctx context.Context, lectureUUID, name string, sha domain.ContentHash) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		doc.BackgroundDoc = &domain.BackgroundDocument{
			Name: name,
			Sha:  append(domain.ContentHash(nil), sha...),
		}
	})
}

func (m *Memory) ResetBackground(ctx context.Context, lectureUUID string) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		doc.BackgroundDoc = &domain.BackgroundDocument{None: true}
	})
}

func (m *Memory) SetLectureSnapshot(ctx context.Context, lectureUUID string, snap LectureSnapshot) error {
	return m.mutate(lectureUUID, func(doc *domain.LectureDocument) {
		if snap.BackgroundInUse {
			doc.BackgroundDocInUse = true
		}
		if snap.BackgroundDoc != nil {
			bg := *snap.BackgroundDoc
			bg.Sha = append(domain.ContentHash(nil), snap.BackgroundDoc.Sha...)
			doc.BackgroundDoc = &bg
		}
		if snap.BoardSaveTime != 0 {
			doc.BoardSaveTime = snap.BoardSaveTime
		}
		if snap.UsedPictures != nil {
			doc.UsedPictures = cloneAssets(snap.UsedPictures)
		}
		if snap.UsedNotebooks != nil {
			doc.UsedNotebooks = cloneNotebooks(snap.UsedNotebooks)
		}
	})
}

func (m *Memory) Routers(ctx context.Context) ([]domain.RouterStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RouterStatus(nil), m.routers...), nil
}

func cloneLecture(doc *domain.LectureDocument) *domain.LectureDocument {
	out := *doc
	out.Owners = append([]string(nil), doc.Owners...)
	out.OwnersDisplayNames = append([]string(nil), doc.OwnersDisplayNames...)
	out.Features = append([]string(nil), doc.Features...)
	out.Polls = clonePolls(doc.Polls)
	out.Notebooks = cloneNotebooks(doc.Notebooks)
	out.Pictures = cloneAssets(doc.Pictures)
	out.UsedPictures = cloneAssets(doc.UsedPictures)
	out.UsedNotebooks = cloneNotebooks(doc.UsedNotebooks)
	out.Boards = append([]string(nil), doc.Boards...)
	if doc.BackgroundDoc != nil {
		bg := *doc.BackgroundDoc
		bg.Sha = append(domain.ContentHash(nil), doc.BackgroundDoc.Sha...)
		out.BackgroundDoc = &bg
	}
	return &out
}

func clonePolls(polls []domain.Poll) []domain.Poll {
	if polls == nil {
		return nil
	}
	out := make([]domain.Poll, len(polls))
	for i, p := range polls {
		out[i] = p
		out[i].Children = clonePolls(p.Children)
	}
	return out
}

func cloneNotebook(nb domain.Notebook) domain.Notebook {
	out := nb
	out.Sha = append(domain.ContentHash(nil), nb.Sha...)
	out.Applets = append([]domain.Applet(nil), nb.Applets...)
	return out
}

func cloneNotebooks(nbs []domain.Notebook) []domain.Notebook {
	if nbs == nil {
		return nil
	}
	out := make([]domain.Notebook, len(nbs))
	for i, nb := range nbs {
		out[i] = cloneNotebook(nb)
	}
	return out
}

func cloneAsset(a domain.Asset) domain.Asset {
	out := a
	out.Sha = append(domain.ContentHash(nil), a.Sha...)
	out.ThumbSha = append(domain.ContentHash(nil), a.ThumbSha...)
	return out
}

func cloneAssets(assets []domain.Asset) []domain.Asset {
	if assets == nil {
		return nil
	}
	out := make([]domain.Asset, len(assets))
	for i, a := range assets {
		out[i] = cloneAsset(a)
	}
	return out
}
