package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/apierr"
	"github.com/chalkcast/appserver/internal/platform/logger"
	"github.com/chalkcast/appserver/internal/store/docstore"
)

const (
	maxPollIDLen     = 20
	maxNotebookIDLen = 9
)

// Copy selectors.
const (
	CopyPictures  = "pictures"
	CopyPolls     = "polls"
	CopyNotebooks = "ipynbs"
	CopyLecture   = "lecture"
	CopyAll       = "all"
)

// PollPatch is one poll upsert: insert-if-absent then patch. Nil fields
// are left untouched on an existing node.
type PollPatch struct {
	ID       string
	ParentID string
	Name     *string
	Multi    *bool
	Note     *string
}

// AppletPayload mirrors one applet of an uploaded notebook. A nil
// PresentToStudents inherits the prior value for the same app id, or
// defaults to hidden.
type AppletPayload struct {
	AppID             string
	AppName           string
	PresentToStudents *bool
}

// NotebookPayload is a notebook upsert. PresentDownload and Note are
// merge-on-missing: nil preserves whatever the notebook had before.
type NotebookPayload struct {
	ID              string
	Name            string
	Sha             domain.ContentHash
	MimeType        string
	Filename        string
	PresentDownload *string
	Note            *string
	Applets         []AppletPayload
}

// NotebookMetaPatch updates notebook metadata without replacing content.
type NotebookMetaPatch struct {
	ID              string
	Name            *string
	PresentDownload *string
	Note            *string
	AppletsVisible  map[string]bool
}

// AssetView is an asset with its URLs resolved for clients.
type AssetView struct {
	Name     string `json:"name"`
	MimeType string `json:"mimetype"`
	Sha      string `json:"sha"`
	URL      string `json:"url"`
	ThumbURL string `json:"urlthumb,omitempty"`
}

// NotebookView is a notebook shaped for one audience. Applets the
// audience may not see are already filtered out.
type NotebookView struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Sha             string          `json:"sha"`
	MimeType        string          `json:"mimetype"`
	Filename        string          `json:"filename"`
	PresentDownload string          `json:"presentDownload"`
	Note            string          `json:"note"`
	Applets         []domain.Applet `json:"applets,omitempty"`
	URL             string          `json:"url"`
}

// BackgroundView reports the background document state without leaking
// the raw store layout.
type BackgroundView struct {
	None  bool   `json:"none,omitempty"`
	Fixed bool   `json:"fixed,omitempty"`
	Name  string `json:"name,omitempty"`
	Sha   string `json:"sha,omitempty"`
	URL   string `json:"url,omitempty"`
}

// LectureView is the role-shaped read model of one lecture.
type LectureView struct {
	UUID               string          `json:"uuid"`
	Title              string          `json:"title"`
	CourseTitle        string          `json:"coursetitle,omitempty"`
	Date               time.Time       `json:"date,omitempty"`
	OwnersDisplayNames []string        `json:"ownersdisplaynames,omitempty"`
	Running            bool            `json:"running"`
	Notebooks          []NotebookView  `json:"ipynbs,omitempty"`
	Pictures           []AssetView     `json:"pictures,omitempty"`
	Background         *BackgroundView `json:"bgpdf,omitempty"`
	Polls              []domain.Poll   `json:"polls,omitempty"`
}

// ExportView is the projection-data bundle consumed by the lecture
// renderer when it boots from persisted state.
type ExportView struct {
	Title              string          `json:"title"`
	CourseTitle        string          `json:"coursetitle,omitempty"`
	OwnersDisplayNames []string        `json:"ownersdisplaynames,omitempty"`
	Date               time.Time       `json:"date,omitempty"`
	BackgroundInUse    bool            `json:"backgroundpdfuse,omitempty"`
	Background         *BackgroundView `json:"backgroundpdf,omitempty"`
	UsedPictures       []AssetView     `json:"usedpictures"`
}

// LectureService applies narrow, idempotent, field-scoped updates to
// lecture documents. There is no per-lecture mutex anywhere: concurrent
// writers rely on the store's per-document atomic primitives, and
// same-id patches race at field granularity (last write wins).
type LectureService interface {
	View(ctx context.Context, lectureUUID string, instructor bool) (*LectureView, error)
	List(ctx context.Context, lectureUUID, ownerUUID string) ([]domain.LectureSummary, error)
	Export(ctx context.Context, lectureUUID, requireOwnerUUID string) (*ExportView, error)

	SetSchedule(ctx context.Context, lectureUUID string, date time.Time) error
	EditDisplayNames(ctx context.Context, lectureUUID, callerDisplayName string, names []string) error
	SetCourseAppVersion(ctx context.Context, lectureUUID, appVersion string) error
	SetCourseFeatures(ctx context.Context, lectureUUID string, features []string) error

	UpsertPoll(ctx context.Context, lectureUUID string, patch PollPatch) error
	RemovePoll(ctx context.Context, lectureUUID, pollID, parentID string) error

	UpsertNotebook(ctx context.Context, lectureUUID string, payload NotebookPayload) (domain.ContentHash, error)
	PatchNotebookMeta(ctx context.Context, lectureUUID string, patch NotebookMetaPatch) error
	RemoveNotebook(ctx context.Context, lectureUUID, notebookID string) (domain.ContentHash, error)

	AddPicture(ctx context.Context, lectureUUID string, asset domain.Asset) error
	SetBackgroundDocument(ctx context.Context, lectureUUID, name string, sha domain.ContentHash) error
	ResetBackgroundDocument(ctx context.Context, lectureUUID string) error

	CopyFrom(ctx context.Context, srcUUID, destUUID, selector, userUUID string) error
}

type lectureService struct {
	log      *logger.Logger
	docs     docstore.Store
	assets   AssetService
	presence PresenceService
}

func NewLectureService(log *logger.Logger, docs docstore.Store, assets AssetService, presence PresenceService) LectureService {
	return &lectureService{
		log:      log.With("service", "LectureService"),
		docs:     docs,
		assets:   assets,
		presence: presence,
	}
}

func (ls *lectureService) lecture(ctx context.Context, lectureUUID string) (*domain.LectureDocument, error) {
	doc, err := ls.docs.Lecture(ctx, lectureUUID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apierr.NotFound("lecture")
	}
	if err != nil {
		return nil, apierr.StoreFailure(err)
	}
	return doc, nil
}

func (ls *lectureService) View(ctx context.Context, lectureUUID string, instructor bool) (*LectureView, error) {
	doc, err := ls.lecture(ctx, lectureUUID)
	if err != nil {
		return nil, err
	}
	running, err := ls.presence.IsRunning(ctx, lectureUUID)
	if err != nil {
		return nil, err
	}

	view := &LectureView{
		UUID:               doc.UUID,
		Title:              doc.Title,
		CourseTitle:        doc.CourseTitle,
		Date:               doc.Date,
		OwnersDisplayNames: doc.OwnersDisplayNames,
		Running:            running,
	}
	for _, nb := range doc.Notebooks {
		applets := make([]domain.Applet, 0, len(nb.Applets))
		for _, app := range nb.Applets {
			if app.PresentToStudents || instructor {
				applets = append(applets, app)
			}
		}
		if !instructor && nb.PresentDownload != "yes" && len(applets) == 0 {
			continue
		}
		view.Notebooks = append(view.Notebooks, NotebookView{
			ID:              nb.ID,
			Name:            nb.Name,
			Sha:             nb.Sha.Hex(),
			MimeType:        nb.MimeType,
			Filename:        nb.Filename,
			PresentDownload: nb.PresentDownload,
			Note:            nb.Note,
			Applets:         applets,
			URL:             ls.assets.URLFor(nb.Sha, nb.MimeType),
		})
	}
	if instructor {
		for _, pic := range doc.Pictures {
			view.Pictures = append(view.Pictures, ls.assetView(pic))
		}
		view.Background = ls.backgroundView(doc)
		view.Polls = doc.Polls
	}
	return view, nil
}

func (ls *lectureService) assetView(a domain.Asset) AssetView {
	v := AssetView{
		Name:     a.Name,
		MimeType: a.MimeType,
		Sha:      a.Sha.Hex(),
		URL:      ls.assets.URLFor(a.Sha, a.MimeType),
	}
	if !a.ThumbSha.IsZero() {
		v.ThumbURL = ls.assets.URLFor(a.ThumbSha, a.MimeType)
	}
	return v
}

func (ls *lectureService) backgroundView(doc *domain.LectureDocument) *BackgroundView {
	bg := &BackgroundView{}
	switch {
	case doc.BackgroundDocInUse:
		// locked: expose the name only, the content can no longer change
		bg.Fixed = true
		if doc.BackgroundDoc != nil && doc.BackgroundDoc.Name != "" {
			bg.Name = doc.BackgroundDoc.Name
		} else {
			bg.None = true
		}
	case doc.BackgroundDoc != nil && !doc.BackgroundDoc.None:
		if doc.BackgroundDoc.Name != "" {
			bg.Name = doc.BackgroundDoc.Name
		}
		if !doc.BackgroundDoc.Sha.IsZero() {
			bg.Sha = doc.BackgroundDoc.Sha.Hex()
			bg.URL = ls.assets.URLFor(doc.BackgroundDoc.Sha, "application/pdf")
		}
		if bg.Name == "" && bg.Sha == "" {
			bg.None = true
		}
	default:
		bg.None = true
	}
	return bg
}

func (ls *lectureService) List(ctx context.Context, lectureUUID, ownerUUID string) ([]domain.LectureSummary, error) {
	sel := docstore.ListSelector{OwnerUUID: ownerUUID}
	if lectureUUID != "" {
		if doc, err := ls.docs.Lecture(ctx, lectureUUID); err == nil {
			if doc.LMS.CourseID != "" && doc.LMS.PlatformID != "" {
				lms := doc.LMS
				sel.LMS = &lms
			}
		}
	}
	if sel.LMS == nil && sel.OwnerUUID == "" {
		return nil, apierr.Malformed("no course or owner to list by")
	}
	out, err := ls.docs.List(ctx, sel)
	if err != nil {
		return nil, apierr.StoreFailure(err)
	}
	return out, nil
}

func (ls *lectureService) Export(ctx context.Context, lectureUUID, requireOwnerUUID string) (*ExportView, error) {
	doc, err := ls.lecture(ctx, lectureUUID)
	if err != nil {
		return nil, err
	}
	if requireOwnerUUID != "" && !doc.OwnedBy(requireOwnerUUID) {
		return nil, apierr.NotFound("lecture")
	}
	view := &ExportView{
		Title:              doc.Title,
		CourseTitle:        doc.CourseTitle,
		OwnersDisplayNames: doc.OwnersDisplayNames,
		Date:               doc.Date,
		BackgroundInUse:    doc.BackgroundDocInUse,
		UsedPictures:       make([]AssetView, 0, len(doc.UsedPictures)),
	}
	if doc.BackgroundDocInUse && doc.BackgroundDoc != nil && !doc.BackgroundDoc.Sha.IsZero() {
		view.Background = &BackgroundView{
			Name: doc.BackgroundDoc.Name,
			Sha:  doc.BackgroundDoc.Sha.Hex(),
			URL:  ls.assets.URLFor(doc.BackgroundDoc.Sha, "application/pdf"),
		}
	}
	for _, pic := range doc.UsedPictures {
		view.UsedPictures = append(view.UsedPictures, ls.assetView(pic))
	}
	return view, nil
}

func (ls *lectureService) SetSchedule(ctx context.Context, lectureUUID string, date time.Time) error {
	if _, err := ls.lecture(ctx, lectureUUID); err != nil {
		return err
	}
	if err := ls.docs.SetDate(ctx, lectureUUID, date); err != nil {
		return apierr.StoreFailure(err)
	}
	return nil
}

func (ls *lectureService) EditDisplayNames(ctx context.Context, lectureUUID, callerDisplayName string, names []string) error {
	if len(names) < 1 || callerDisplayName == "" {
		return apierr.Malformed("display name list")
	}
	hasCaller := false
	for _, name := range names {
		if name == "" {
			return apierr.Malformed("display name list")
		}
		if name == callerDisplayName {
			hasCaller = true
		}
	}
	if !hasCaller {
		// editors cannot remove themselves from the owner display list
		names = append([]string{callerDisplayName}, names...)
	}
	if err := ls.docs.SetOwnersDisplayNames(ctx, lectureUUID, names); err != nil {
		return apierr.StoreFailure(err)
	}
	return nil
}

// courseRef resolves the course of a lecture for course-wide patches.
func (ls *lectureService) courseRef(ctx context.Context, lectureUUID string) (domain.LMSRef, error) {
	doc, err := ls.lecture(ctx, lectureUUID)
	if err != nil {
		return domain.LMSRef{}, err
	}
	if doc.LMS.Issuer == "" {
		return domain.LMSRef{}, apierr.NotFound("lecture without issuer")
	}
	if doc.LMS.CourseID == "" {
		return domain.LMSRef{}, apierr.NotFound("lecture without course id")
	}
	return doc.LMS, nil
}

func (ls *lectureService) SetCourseAppVersion(ctx context.Context, lectureUUID, appVersion string) error {
	if !domain.ValidAppVersion(appVersion) {
		return apierr.Malformed("unknown appversion")
	}
	lms, err := ls.courseRef(ctx, lectureUUID)
	if err != nil {
		return err
	}
	if err := ls.docs.SetCourseAppVersion(ctx, lms, appVersion); err != nil {
		return apierr.StoreFailure(err)
	}
	return nil
}

func (ls *lectureService) SetCourseFeatures(ctx context.Context, lectureUUID string, features []string) error {
	if !domain.ValidFeatures(features) {
		return apierr.Malformed("unknown feature")
	}
	lms, err := ls.courseRef(ctx, lectureUUID)
	if err != nil {
		return err
	}
	if err := ls.docs.SetCourseFeatures(ctx, lms, features); err != nil {
		return apierr.StoreFailure(err)
	}
	return nil
}

func validPollID(id string) bool {
	return id != "" && len(id) <= maxPollIDLen
}

// UpsertPoll is the two-step insert-then-patch: a guarded set-semantics
// insert that tolerates being a no-op on retry, followed by an
// unconditional patch located by structural id match. Repeated delivery
// of the same request converges to the same document.
func (ls *lectureService) UpsertPoll(ctx context.Context, lectureUUID string, patch PollPatch) error {
	if !validPollID(patch.ID) {
		return apierr.Malformed("poll id")
	}
	if patch.Name == nil && patch.Multi == nil && patch.Note == nil {
		return apierr.Malformed("poll patch without fields")
	}
	if patch.ParentID != "" {
		if !validPollID(patch.ParentID) {
			return apierr.Malformed("poll parent id")
		}
		if patch.ParentID == patch.ID {
			return apierr.Malformed("poll cannot be its own parent")
		}
	}
	if err := ls.docs.EnsurePoll(ctx, lectureUUID, patch.ParentID, patch.ID); err != nil {
		return apierr.StoreFailure(err)
	}
	fields := docstore.PollFields{Name: patch.Name, Multi: patch.Multi, Note: patch.Note}
	if err := ls.docs.PatchPoll(ctx, lectureUUID, patch.ParentID, patch.ID, fields); err != nil {
		return apierr.StoreFailure(err)
	}
	return nil
}

func (ls *lectureService) RemovePoll(ctx context.Context, lectureUUID, pollID, parentID string) error {
	if !validPollID(pollID) {
		return apierr.Malformed("poll id")
	}
	if err := ls.docs.PullPoll(ctx, lectureUUID, parentID, pollID); err != nil {
		return apierr.StoreFailure(err)
	}
	return nil
}

// UpsertNotebook replaces a notebook's content while merging metadata the
// payload omits: presentDownload and note survive re-uploads, and each
// applet inherits its prior visibility or starts hidden. The prior
// content hash (when replaced) is queued for deferred deletion and
// returned to the caller.
func (ls *lectureService) UpsertNotebook(ctx context.Context, lectureUUID string, payload NotebookPayload) (domain.ContentHash, error) {
	if payload.ID == "" || len(payload.ID) > maxNotebookIDLen {
		return nil, apierr.Malformed("notebook id")
	}
	if payload.Sha.IsZero() {
		return nil, apierr.Malformed("notebook content hash")
	}
	doc, err := ls.lecture(ctx, lectureUUID)
	if err != nil {
		return nil, err
	}
	prior := doc.FindNotebook(payload.ID)

	nb := domain.Notebook{
		ID:              payload.ID,
		Name:            payload.Name,
		Sha:             payload.Sha,
		MimeType:        payload.MimeType,
		Filename:        payload.Filename,
		PresentDownload: "no",
	}
	if prior != nil {
		nb.PresentDownload = prior.PresentDownload
		nb.Note = prior.Note
	}
	if payload.PresentDownload != nil {
		nb.PresentDownload = *payload.PresentDownload
	}
	if payload.Note != nil {
		nb.Note = *payload.Note
	}
	for _, app := range payload.Applets {
		visible := false
		if app.PresentToStudents != nil {
			visible = *app.PresentToStudents
		} else if prior != nil {
			for _, old := range prior.Applets {
				if old.AppID == app.AppID {
					visible = old.PresentToStudents
					break
				}
			}
		}
		nb.Applets = append(nb.Applets, domain.Applet{
			AppID:             app.AppID,
			AppName:           app.AppName,
			PresentToStudents: visible,
		})
	}

	if err := ls.docs.EnsureNotebook(ctx, lectureUUID, nb.ID); err != nil {
		return nil, apierr.StoreFailure(err)
	}
	if err := ls.docs.ReplaceNotebook(ctx, lectureUUID, nb); err != nil {
		return nil, apierr.StoreFailure(err)
	}

	var replaced domain.ContentHash
	if prior != nil && !prior.Sha.IsZero() && !prior.Sha.Equal(nb.Sha) {
		replaced = prior.Sha
		if err := ls.assets.MarkForDeletion(ctx, DeletionKindNotebook, replaced); err != nil {
			return nil, err
		}
	}
	return replaced, nil
}

func (ls *lectureService) PatchNotebookMeta(ctx context.Context, lectureUUID string, patch NotebookMetaPatch) error {
	if patch.ID == "" || len(patch.ID) > maxNotebookIDLen {
		return apierr.Malformed("notebook id")
	}
	fields := docstore.NotebookFields{
		Name:            patch.Name,
		PresentDownload: patch.PresentDownload,
		Note:            patch.Note,
	}
	if !fields.Empty() {
		if err := ls.docs.PatchNotebookMeta(ctx, lectureUUID, patch.ID, fields); err != nil {
			return apierr.StoreFailure(err)
		}
	}
	for appID, visible := range patch.AppletsVisible {
		if appID == "" {
			continue
		}
		if err := ls.docs.SetAppletVisibility(ctx, lectureUUID, patch.ID, appID, visible); err != nil {
			return apierr.StoreFailure(err)
		}
	}
	return nil
}

func (ls *lectureService) RemoveNotebook(ctx context.Context, lectureUUID, notebookID string) (domain.ContentHash, error) {
	if notebookID == "" || len(notebookID) > maxNotebookIDLen {
		return nil, apierr.Malformed("notebook id")
	}
	doc, err := ls.lecture(ctx, lectureUUID)
	if err != nil {
		return nil, err
	}
	prior := doc.FindNotebook(notebookID)
	if err := ls.docs.PullNotebook(ctx, lectureUUID, notebookID); err != nil {
		return nil, apierr.StoreFailure(err)
	}
	if prior == nil || prior.Sha.IsZero() {
		return nil, nil
	}
	if err := ls.assets.MarkForDeletion(ctx, DeletionKindNotebook, prior.Sha); err != nil {
		return nil, err
	}
	return prior.Sha, nil
}

func (ls *lectureService) AddPicture(ctx context.Context, lectureUUID string, asset domain.Asset) error {
	if err := ls.docs.AddPictures(ctx, lectureUUID, []domain.Asset{asset}); err != nil {
		return apierr.StoreFailure(err)
	}
	return nil
}

func (ls *lectureService) SetBackgroundDocument(ctx context.Context, lectureUUID, name string, sha domain.ContentHash) error {
	doc, err := ls.lecture(ctx, lectureUUID)
	if err != nil {
		return err
	}
	if doc.BackgroundDocInUse {
		return apierr.Conflict("background document is in use")
	}
	if err := ls.docs.SetBackground(ctx, lectureUUID, name, sha); err != nil {
		return apierr.StoreFailure(err)
	}
	if doc.BackgroundDoc != nil && !doc.BackgroundDoc.Sha.IsZero() && !doc.BackgroundDoc.Sha.Equal(sha) {
		return ls.assets.MarkForDeletion(ctx, DeletionKindPDF, doc.BackgroundDoc.Sha)
	}
	return nil
}

func (ls *lectureService) ResetBackgroundDocument(ctx context.Context, lectureUUID string) error {
	doc, err := ls.lecture(ctx, lectureUUID)
	if err != nil {
		return err
	}
	if doc.BackgroundDocInUse {
		return apierr.Conflict("background document is in use")
	}
	if err := ls.docs.ResetBackground(ctx, lectureUUID); err != nil {
		return apierr.StoreFailure(err)
	}
	if doc.BackgroundDoc != nil && !doc.BackgroundDoc.Sha.IsZero() {
		return ls.assets.MarkForDeletion(ctx, DeletionKindPDF, doc.BackgroundDoc.Sha)
	}
	return nil
}

func validCopySelector(selector string) bool {
	switch selector {
	case CopyPictures, CopyPolls, CopyNotebooks, CopyLecture, CopyAll:
		return true
	}
	return false
}

// CopyFrom transfers content between two lectures the caller owns. For
// id-keyed collections it pulls colliding entries before pushing the
// incoming ones, so the destination never holds a duplicate id; the two
// steps are not one transaction, and a crash in between is repaired by
// re-running the copy.
func (ls *lectureService) CopyFrom(ctx context.Context, srcUUID, destUUID, selector, userUUID string) error {
	if !validCopySelector(selector) {
		return apierr.Malformed("copy selector")
	}
	if _, err := uuid.Parse(srcUUID); err != nil {
		return apierr.Malformed("source lecture id")
	}
	if srcUUID == destUUID {
		return apierr.Malformed("source equals destination")
	}

	src, err := ls.lecture(ctx, srcUUID)
	if err != nil {
		return err
	}
	if !src.OwnedBy(userUUID) {
		return apierr.Unauthorized("not an owner of the source lecture")
	}

	if selector == CopyLecture || selector == CopyAll {
		dest, err := ls.lecture(ctx, destUUID)
		if err != nil {
			return err
		}
		if dest.BackgroundDocInUse {
			return apierr.Conflict("destination lecture already started")
		}
	}

	if selector == CopyPictures || selector == CopyAll {
		if err := ls.docs.AddPictures(ctx, destUUID, src.Pictures); err != nil {
			return apierr.StoreFailure(err)
		}
	}
	if selector == CopyPolls || selector == CopyAll {
		if len(src.Polls) > 0 {
			ids := make([]string, 0, len(src.Polls))
			for _, p := range src.Polls {
				ids = append(ids, p.ID)
			}
			if err := ls.docs.PullPollsByID(ctx, destUUID, ids); err != nil {
				return apierr.StoreFailure(err)
			}
			if err := ls.docs.PushPolls(ctx, destUUID, src.Polls); err != nil {
				return apierr.StoreFailure(err)
			}
		}
	}
	if selector == CopyNotebooks || selector == CopyAll {
		if len(src.Notebooks) > 0 {
			ids := make([]string, 0, len(src.Notebooks))
			for _, nb := range src.Notebooks {
				ids = append(ids, nb.ID)
			}
			if err := ls.docs.PullNotebooksByID(ctx, destUUID, ids); err != nil {
				return apierr.StoreFailure(err)
			}
			if err := ls.docs.PushNotebooks(ctx, destUUID, src.Notebooks); err != nil {
				return apierr.StoreFailure(err)
			}
		}
	}
	if selector == CopyLecture || selector == CopyAll {
		snap := docstore.LectureSnapshot{
			BackgroundInUse: src.BackgroundDocInUse,
			BackgroundDoc:   src.BackgroundDoc,
			BoardSaveTime:   src.BoardSaveTime,
			UsedPictures:    src.UsedPictures,
			UsedNotebooks:   src.UsedNotebooks,
		}
		if err := ls.docs.SetLectureSnapshot(ctx, destUUID, snap); err != nil {
			return apierr.StoreFailure(err)
		}
	}

	ls.log.Debug("copied lecture content", "selector", selector, "source", srcUUID, "destination", destUUID)
	return nil
}
