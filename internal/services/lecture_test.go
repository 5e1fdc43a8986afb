package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/apierr"
	"github.com/chalkcast/appserver/internal/store/blob"
	"github.com/chalkcast/appserver/internal/store/docstore"
	"github.com/chalkcast/appserver/internal/store/ephemeral"
)

type lectureFixture struct {
	docs    *docstore.Memory
	eph     *ephemeral.Memory
	blobs   *blob.Memory
	assets  AssetService
	lecture LectureService
}

func newLectureFixture(t *testing.T) *lectureFixture {
	t.Helper()
	log := mustTestLogger(t)
	docs := docstore.NewMemory()
	eph := ephemeral.NewMemory()
	blobs := blob.NewMemory()
	assets := NewAssetService(log, blobs, eph)
	presence := NewPresenceService(log, eph, docs)
	return &lectureFixture{
		docs:    docs,
		eph:     eph,
		blobs:   blobs,
		assets:  assets,
		lecture: NewLectureService(log, docs, assets, presence),
	}
}

func (f *lectureFixture) seed(t *testing.T, owners ...string) string {
	t.Helper()
	id := uuid.NewString()
	f.docs.Put(&domain.LectureDocument{
		UUID:        id,
		Title:       "Thermodynamics 7",
		CourseTitle: "Physics II",
		Owners:      owners,
		LMS:         domain.LMSRef{Issuer: "https://lms.example.test", CourseID: "phys-2", PlatformID: "p1"},
	})
	return id
}

func (f *lectureFixture) doc(t *testing.T, id string) *domain.LectureDocument {
	t.Helper()
	doc, err := f.docs.Lecture(context.Background(), id)
	if err != nil {
		t.Fatalf("Lecture(%s): %v", id, err)
	}
	return doc
}

func TestUpsertPollIsIdempotent(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())

	patch := PollPatch{ID: "q1", Name: strPtr("Warmup"), Multi: boolPtr(true)}
	for i := 0; i < 3; i++ {
		if err := f.lecture.UpsertPoll(ctx, id, patch); err != nil {
			t.Fatalf("UpsertPoll #%d: %v", i, err)
		}
	}
	doc := f.doc(t, id)
	if len(doc.Polls) != 1 {
		t.Fatalf("polls = %d, want 1", len(doc.Polls))
	}
	if doc.Polls[0].Name != "Warmup" || !doc.Polls[0].Multi {
		t.Fatalf("poll = %+v", doc.Polls[0])
	}
}

func TestUpsertPollPatchesOnlyGivenFields(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())

	if err := f.lecture.UpsertPoll(ctx, id, PollPatch{ID: "q1", Name: strPtr("Warmup"), Multi: boolPtr(true)}); err != nil {
		t.Fatalf("UpsertPoll: %v", err)
	}
	if err := f.lecture.UpsertPoll(ctx, id, PollPatch{ID: "q1", Note: strPtr("see chapter 3")}); err != nil {
		t.Fatalf("UpsertPoll patch: %v", err)
	}
	poll := f.doc(t, id).FindPoll("q1")
	if poll == nil {
		t.Fatalf("poll missing")
	}
	if poll.Name != "Warmup" || !poll.Multi || poll.Note != "see chapter 3" {
		t.Fatalf("poll = %+v", poll)
	}
}

func TestUpsertPollNested(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())

	if err := f.lecture.UpsertPoll(ctx, id, PollPatch{ID: "q1", Name: strPtr("Warmup")}); err != nil {
		t.Fatalf("UpsertPoll parent: %v", err)
	}
	if err := f.lecture.UpsertPoll(ctx, id, PollPatch{ID: "q1a", ParentID: "q1", Name: strPtr("Option A")}); err != nil {
		t.Fatalf("UpsertPoll child: %v", err)
	}
	doc := f.doc(t, id)
	if len(doc.Polls) != 1 || len(doc.Polls[0].Children) != 1 {
		t.Fatalf("forest shape wrong: %+v", doc.Polls)
	}
	if doc.Polls[0].Children[0].Name != "Option A" {
		t.Fatalf("child = %+v", doc.Polls[0].Children[0])
	}

	if err := f.lecture.RemovePoll(ctx, id, "q1a", "q1"); err != nil {
		t.Fatalf("RemovePoll child: %v", err)
	}
	if f.doc(t, id).FindPoll("q1a") != nil {
		t.Fatalf("child survived removal")
	}
}

func TestUpsertPollValidation(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())
	name := strPtr("x")

	cases := []PollPatch{
		{ID: "", Name: name},
		{ID: "this-id-is-way-too-long-for-a-poll", Name: name},
		{ID: "q1", ParentID: "q1", Name: name},
		{ID: "q1"}, // no fields at all
	}
	for i, patch := range cases {
		if err := f.lecture.UpsertPoll(ctx, id, patch); !apierr.IsCode(err, apierr.CodeMalformedInput) {
			t.Fatalf("case %d: err = %v, want malformed_input", i, err)
		}
	}
}

func TestUpsertNotebookMergesMissingFields(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())

	first := NotebookPayload{
		ID:       "nb1",
		Name:     "Heat engines",
		Sha:      hashOf(0x01),
		MimeType: "application/x-ipynb+json",
		Filename: "heat.ipynb",
		Applets: []AppletPayload{
			{AppID: "app1", AppName: "Carnot sim"},
		},
	}
	if _, err := f.lecture.UpsertNotebook(ctx, id, first); err != nil {
		t.Fatalf("UpsertNotebook: %v", err)
	}
	nb := f.doc(t, id).FindNotebook("nb1")
	if nb.PresentDownload != "no" {
		t.Fatalf("presentDownload default = %q, want no", nb.PresentDownload)
	}
	if nb.Applets[0].PresentToStudents {
		t.Fatalf("applet visible by default")
	}

	// instructor opts things in
	if err := f.lecture.PatchNotebookMeta(ctx, id, NotebookMetaPatch{
		ID:              "nb1",
		PresentDownload: strPtr("yes"),
		Note:            strPtr("run cell 3 live"),
		AppletsVisible:  map[string]bool{"app1": true},
	}); err != nil {
		t.Fatalf("PatchNotebookMeta: %v", err)
	}

	// re-upload with new content, omitting the opt-in fields
	second := first
	second.Sha = hashOf(0x02)
	replaced, err := f.lecture.UpsertNotebook(ctx, id, second)
	if err != nil {
		t.Fatalf("UpsertNotebook replace: %v", err)
	}
	if !replaced.Equal(hashOf(0x01)) {
		t.Fatalf("replaced hash = %v", replaced)
	}
	nb = f.doc(t, id).FindNotebook("nb1")
	if nb.PresentDownload != "yes" || nb.Note != "run cell 3 live" {
		t.Fatalf("merge lost opt-ins: %+v", nb)
	}
	if !nb.Applets[0].PresentToStudents {
		t.Fatalf("applet visibility not inherited")
	}
	if !nb.Sha.Equal(hashOf(0x02)) {
		t.Fatalf("content not replaced")
	}

	// the prior content hash is queued for the reaper exactly once
	members, _ := f.eph.SMembers(ctx, "checkdel:ipynb")
	if len(members) != 1 || members[0] != hashOf(0x01).Hex() {
		t.Fatalf("pending deletions = %v", members)
	}
}

func TestUpsertNotebookSameContentSkipsGC(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())

	payload := NotebookPayload{ID: "nb1", Name: "n", Sha: hashOf(0x01), MimeType: "application/x-ipynb+json", Filename: "n.ipynb"}
	if _, err := f.lecture.UpsertNotebook(ctx, id, payload); err != nil {
		t.Fatalf("UpsertNotebook: %v", err)
	}
	replaced, err := f.lecture.UpsertNotebook(ctx, id, payload)
	if err != nil {
		t.Fatalf("UpsertNotebook again: %v", err)
	}
	if replaced != nil {
		t.Fatalf("same content reported as replaced")
	}
	if n, _ := f.eph.SCard(ctx, "checkdel:ipynb"); n != 0 {
		t.Fatalf("unchanged content enqueued for deletion")
	}
}

func TestRemoveNotebookEnqueuesHash(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())

	payload := NotebookPayload{ID: "nb1", Name: "n", Sha: hashOf(0x07), MimeType: "application/x-ipynb+json", Filename: "n.ipynb"}
	if _, err := f.lecture.UpsertNotebook(ctx, id, payload); err != nil {
		t.Fatalf("UpsertNotebook: %v", err)
	}
	removed, err := f.lecture.RemoveNotebook(ctx, id, "nb1")
	if err != nil {
		t.Fatalf("RemoveNotebook: %v", err)
	}
	if !removed.Equal(hashOf(0x07)) {
		t.Fatalf("removed hash = %v", removed)
	}
	if f.doc(t, id).FindNotebook("nb1") != nil {
		t.Fatalf("notebook survived removal")
	}
	members, _ := f.eph.SMembers(ctx, "checkdel:ipynb")
	if len(members) != 1 {
		t.Fatalf("pending deletions = %v", members)
	}
}

func TestBackgroundDocumentLifecycle(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())

	if err := f.lecture.SetBackgroundDocument(ctx, id, "slides.pdf", hashOf(0x11)); err != nil {
		t.Fatalf("SetBackgroundDocument: %v", err)
	}
	// replacing enqueues the old hash
	if err := f.lecture.SetBackgroundDocument(ctx, id, "slides-v2.pdf", hashOf(0x12)); err != nil {
		t.Fatalf("SetBackgroundDocument replace: %v", err)
	}
	members, _ := f.eph.SMembers(ctx, "checkdel:pdf")
	if len(members) != 1 || members[0] != hashOf(0x11).Hex() {
		t.Fatalf("pending pdf deletions = %v", members)
	}

	// reset clears the document and enqueues the current hash
	if err := f.lecture.ResetBackgroundDocument(ctx, id); err != nil {
		t.Fatalf("ResetBackgroundDocument: %v", err)
	}
	doc := f.doc(t, id)
	if doc.BackgroundDoc == nil || !doc.BackgroundDoc.None || !doc.BackgroundDoc.Sha.IsZero() {
		t.Fatalf("background after reset = %+v", doc.BackgroundDoc)
	}
	members, _ = f.eph.SMembers(ctx, "checkdel:pdf")
	if len(members) != 2 {
		t.Fatalf("pending pdf deletions after reset = %v", members)
	}
}

func TestBackgroundDocumentLockedWhileInUse(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())
	f.docs.Put(&domain.LectureDocument{
		UUID:               id,
		BackgroundDocInUse: true,
		BackgroundDoc:      &domain.BackgroundDocument{Name: "slides.pdf", Sha: hashOf(0x11)},
	})

	if err := f.lecture.SetBackgroundDocument(ctx, id, "new.pdf", hashOf(0x12)); !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("set while locked: err = %v, want conflict", err)
	}
	if err := f.lecture.ResetBackgroundDocument(ctx, id); !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("reset while locked: err = %v, want conflict", err)
	}
	if n, _ := f.eph.SCard(ctx, "checkdel:pdf"); n != 0 {
		t.Fatalf("locked background leaked a deletion candidate")
	}
}

func TestCopyFromResolvesCollisionsByID(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	owner := uuid.NewString()
	src := f.seed(t, owner)
	dest := f.seed(t, owner)

	if _, err := f.lecture.UpsertNotebook(ctx, src, NotebookPayload{ID: "nb1", Name: "from src", Sha: hashOf(0x01), MimeType: "application/x-ipynb+json", Filename: "a.ipynb"}); err != nil {
		t.Fatalf("seed src notebook: %v", err)
	}
	if _, err := f.lecture.UpsertNotebook(ctx, dest, NotebookPayload{ID: "nb1", Name: "from dest", Sha: hashOf(0x02), MimeType: "application/x-ipynb+json", Filename: "b.ipynb"}); err != nil {
		t.Fatalf("seed dest notebook: %v", err)
	}

	if err := f.lecture.CopyFrom(ctx, src, dest, CopyNotebooks, owner); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	doc := f.doc(t, dest)
	if len(doc.Notebooks) != 1 {
		t.Fatalf("notebooks = %d, want 1 (collision must be replaced)", len(doc.Notebooks))
	}
	if doc.Notebooks[0].Name != "from src" || !doc.Notebooks[0].Sha.Equal(hashOf(0x01)) {
		t.Fatalf("destination kept its colliding copy: %+v", doc.Notebooks[0])
	}

	// retrying the copy converges to the same state
	if err := f.lecture.CopyFrom(ctx, src, dest, CopyNotebooks, owner); err != nil {
		t.Fatalf("CopyFrom retry: %v", err)
	}
	if len(f.doc(t, dest).Notebooks) != 1 {
		t.Fatalf("retry duplicated notebooks")
	}
}

func TestCopyFromPicturesIsSetUnion(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	owner := uuid.NewString()
	src := f.seed(t, owner)
	dest := f.seed(t, owner)

	shared := domain.Asset{Name: "board1.png", MimeType: "image/png", Sha: hashOf(0x21), ThumbSha: hashOf(0x22)}
	only := domain.Asset{Name: "board2.png", MimeType: "image/png", Sha: hashOf(0x23), ThumbSha: hashOf(0x24)}
	if err := f.lecture.AddPicture(ctx, src, shared); err != nil {
		t.Fatalf("AddPicture src: %v", err)
	}
	if err := f.lecture.AddPicture(ctx, src, only); err != nil {
		t.Fatalf("AddPicture src 2: %v", err)
	}
	if err := f.lecture.AddPicture(ctx, dest, shared); err != nil {
		t.Fatalf("AddPicture dest: %v", err)
	}

	if err := f.lecture.CopyFrom(ctx, src, dest, CopyPictures, owner); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if got := len(f.doc(t, dest).Pictures); got != 2 {
		t.Fatalf("pictures = %d, want 2 (set union)", got)
	}
}

func TestCopyFromGuards(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	owner := uuid.NewString()
	src := f.seed(t, owner)
	dest := f.seed(t, owner)

	if err := f.lecture.CopyFrom(ctx, src, dest, "boards", owner); !apierr.IsCode(err, apierr.CodeMalformedInput) {
		t.Fatalf("bad selector: err = %v", err)
	}
	if err := f.lecture.CopyFrom(ctx, src, src, CopyAll, owner); !apierr.IsCode(err, apierr.CodeMalformedInput) {
		t.Fatalf("src == dest: err = %v", err)
	}
	if err := f.lecture.CopyFrom(ctx, src, dest, CopyAll, uuid.NewString()); !apierr.IsCode(err, apierr.CodeUnauthorized) {
		t.Fatalf("non-owner: err = %v", err)
	}

	// a destination that already projected cannot take a lecture snapshot
	f.docs.Put(&domain.LectureDocument{UUID: dest, Owners: []string{owner}, BackgroundDocInUse: true})
	if err := f.lecture.CopyFrom(ctx, src, dest, CopyLecture, owner); !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("locked destination: err = %v", err)
	}
}

func TestCopyFromLectureSnapshot(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	owner := uuid.NewString()
	src := f.seed(t, owner)
	dest := f.seed(t, owner)
	f.docs.Put(&domain.LectureDocument{
		UUID:               src,
		Owners:             []string{owner},
		BackgroundDocInUse: true,
		BackgroundDoc:      &domain.BackgroundDocument{Name: "slides.pdf", Sha: hashOf(0x31)},
		BoardSaveTime:      1700000000,
		UsedPictures:       []domain.Asset{{Name: "p.png", MimeType: "image/png", Sha: hashOf(0x32)}},
	})

	if err := f.lecture.CopyFrom(ctx, src, dest, CopyLecture, owner); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	doc := f.doc(t, dest)
	if !doc.BackgroundDocInUse || doc.BackgroundDoc == nil || doc.BackgroundDoc.Name != "slides.pdf" {
		t.Fatalf("snapshot missing: %+v", doc)
	}
	if doc.BoardSaveTime != 1700000000 || len(doc.UsedPictures) != 1 {
		t.Fatalf("snapshot incomplete: %+v", doc)
	}
}

func TestSetCourseAppVersionAndFeatures(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	owner := uuid.NewString()
	first := f.seed(t, owner)
	second := f.seed(t, owner) // same course ref via seed

	if err := f.lecture.SetCourseAppVersion(ctx, first, "nightly"); !apierr.IsCode(err, apierr.CodeMalformedInput) {
		t.Fatalf("bad appversion: err = %v", err)
	}
	if err := f.lecture.SetCourseFeatures(ctx, first, []string{"telepathy"}); !apierr.IsCode(err, apierr.CodeMalformedInput) {
		t.Fatalf("bad feature: err = %v", err)
	}

	if err := f.lecture.SetCourseAppVersion(ctx, first, domain.AppVersionExperimental); err != nil {
		t.Fatalf("SetCourseAppVersion: %v", err)
	}
	if err := f.lecture.SetCourseFeatures(ctx, first, []string{domain.FeatureJupyter}); err != nil {
		t.Fatalf("SetCourseFeatures: %v", err)
	}
	// course-wide: the sibling lecture is patched too
	for _, id := range []string{first, second} {
		doc := f.doc(t, id)
		if doc.AppVersion != domain.AppVersionExperimental {
			t.Fatalf("lecture %s appversion = %q", id, doc.AppVersion)
		}
		if len(doc.Features) != 1 || doc.Features[0] != domain.FeatureJupyter {
			t.Fatalf("lecture %s features = %v", id, doc.Features)
		}
	}
}

func TestEditDisplayNamesKeepsCaller(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())

	if err := f.lecture.EditDisplayNames(ctx, id, "Dr. Example", []string{"Guest Lecturer"}); err != nil {
		t.Fatalf("EditDisplayNames: %v", err)
	}
	names := f.doc(t, id).OwnersDisplayNames
	if len(names) != 2 || names[0] != "Dr. Example" {
		t.Fatalf("names = %v", names)
	}

	if err := f.lecture.EditDisplayNames(ctx, id, "", []string{"x"}); !apierr.IsCode(err, apierr.CodeMalformedInput) {
		t.Fatalf("missing caller name: err = %v", err)
	}
}

func TestViewShapesByRole(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())

	// hidden notebook, downloadable notebook, notebook with a visible applet
	hidden := NotebookPayload{ID: "nb1", Name: "hidden", Sha: hashOf(0x01), MimeType: "application/x-ipynb+json", Filename: "h.ipynb"}
	download := NotebookPayload{ID: "nb2", Name: "download", Sha: hashOf(0x02), MimeType: "application/x-ipynb+json", Filename: "d.ipynb", PresentDownload: strPtr("yes")}
	applet := NotebookPayload{ID: "nb3", Name: "applet", Sha: hashOf(0x03), MimeType: "application/x-ipynb+json", Filename: "a.ipynb",
		Applets: []AppletPayload{{AppID: "app1", AppName: "Sim", PresentToStudents: boolPtr(true)}}}
	for _, p := range []NotebookPayload{hidden, download, applet} {
		if _, err := f.lecture.UpsertNotebook(ctx, id, p); err != nil {
			t.Fatalf("UpsertNotebook %s: %v", p.ID, err)
		}
	}
	if err := f.lecture.AddPicture(ctx, id, domain.Asset{Name: "b.png", MimeType: "image/png", Sha: hashOf(0x04)}); err != nil {
		t.Fatalf("AddPicture: %v", err)
	}

	audience, err := f.lecture.View(ctx, id, false)
	if err != nil {
		t.Fatalf("View audience: %v", err)
	}
	if len(audience.Notebooks) != 2 {
		t.Fatalf("audience notebooks = %d, want 2", len(audience.Notebooks))
	}
	for _, nb := range audience.Notebooks {
		if nb.ID == "nb1" {
			t.Fatalf("audience sees the hidden notebook")
		}
		if nb.URL == "" {
			t.Fatalf("notebook %s has no URL", nb.ID)
		}
	}
	if audience.Pictures != nil || audience.Polls != nil || audience.Background != nil {
		t.Fatalf("audience view leaks instructor data")
	}
	if audience.Running {
		t.Fatalf("lecture reported running without screens")
	}

	instructor, err := f.lecture.View(ctx, id, true)
	if err != nil {
		t.Fatalf("View instructor: %v", err)
	}
	if len(instructor.Notebooks) != 3 || len(instructor.Pictures) != 1 {
		t.Fatalf("instructor view = %+v", instructor)
	}
	if instructor.Background == nil || !instructor.Background.None {
		t.Fatalf("background state = %+v", instructor.Background)
	}
}

func TestViewReportsRunning(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())
	if err := f.eph.SAdd(ctx, "lecture:"+id+":notescreens", uuid.NewString()); err != nil {
		t.Fatalf("SAdd: %v", err)
	}
	view, err := f.lecture.View(ctx, id, false)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if !view.Running {
		t.Fatalf("lecture with a registered screen not reported running")
	}
}

func TestExportRequiresOwnership(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	owner := uuid.NewString()
	id := f.seed(t, owner)
	f.docs.Put(&domain.LectureDocument{
		UUID:               id,
		Title:              "Thermodynamics 7",
		Owners:             []string{owner},
		BackgroundDocInUse: true,
		BackgroundDoc:      &domain.BackgroundDocument{Name: "slides.pdf", Sha: hashOf(0x41)},
		UsedPictures:       []domain.Asset{{Name: "p.png", MimeType: "image/png", Sha: hashOf(0x42)}},
	})

	if _, err := f.lecture.Export(ctx, id, uuid.NewString()); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("export as stranger: err = %v, want not_found", err)
	}
	export, err := f.lecture.Export(ctx, id, owner)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if export.Background == nil || export.Background.URL == "" {
		t.Fatalf("background URL missing: %+v", export.Background)
	}
	if len(export.UsedPictures) != 1 || export.UsedPictures[0].URL == "" {
		t.Fatalf("used pictures = %+v", export.UsedPictures)
	}
}

func TestSetScheduleStampsDate(t *testing.T) {
	f := newLectureFixture(t)
	ctx := context.Background()
	id := f.seed(t, uuid.NewString())
	when := time.Date(2026, 9, 14, 10, 15, 0, 0, time.UTC)

	if err := f.lecture.SetSchedule(ctx, id, when); err != nil {
		t.Fatalf("SetSchedule: %v", err)
	}
	if got := f.doc(t, id).Date; !got.Equal(when) {
		t.Fatalf("date = %v, want %v", got, when)
	}
	if err := f.lecture.SetSchedule(ctx, uuid.NewString(), when); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("missing lecture: err = %v, want not_found", err)
	}
}
