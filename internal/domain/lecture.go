package domain

import "time"

// AppVersion selects which client build a lecture runs.
const (
	AppVersionStable       = "stable"
	AppVersionExperimental = "experimental"
)

// Optional capabilities a lecture can enable.
const (
	FeatureAVBroadcast = "avbroadcast"
	FeatureJupyter     = "jupyter"
)

// KnownFeatures lists every feature a course patch may enable.
var KnownFeatures = []string{FeatureAVBroadcast, FeatureJupyter}

func ValidAppVersion(v string) bool {
	return v == AppVersionStable || v == AppVersionExperimental
}

func ValidFeatures(features []string) bool {
	for _, f := range features {
		known := false
		for _, k := range KnownFeatures {
			if f == k {
				known = true
				break
			}
		}
		if !known {
			return false
		}
	}
	return true
}

// Asset is a stored binary referenced from a lecture. Field order matters:
// the document store deduplicates pictures with a structural set-add, so
// two uploads of the same bytes must serialize identically.
type Asset struct {
	Name     string      `bson:"name" json:"name"`
	MimeType string      `bson:"mimetype" json:"mimetype"`
	Sha      ContentHash `bson:"sha" json:"sha"`
	ThumbSha ContentHash `bson:"tsha,omitempty" json:"tsha,omitempty"`
}

// BackgroundDocument is the optional projection basis of a lecture. Once a
// lecture has started projecting on it, the separate InUse flag on the
// document locks it against replacement.
type BackgroundDocument struct {
	None bool        `bson:"none,omitempty" json:"none,omitempty"`
	Name string      `bson:"name,omitempty" json:"name,omitempty"`
	Sha  ContentHash `bson:"sha,omitempty" json:"sha,omitempty"`
}

// Poll is one node of a lecture's poll forest. IDs are caller-chosen,
// at most 20 characters, and unique across the whole forest. Nesting is
// two levels deep: top-level polls carry children, children do not.
type Poll struct {
	ID       string `bson:"id" json:"id"`
	Name     string `bson:"name,omitempty" json:"name,omitempty"`
	Multi    bool   `bson:"multi,omitempty" json:"multi,omitempty"`
	Note     string `bson:"note,omitempty" json:"note,omitempty"`
	Children []Poll `bson:"children,omitempty" json:"children,omitempty"`
}

// Applet is an interactive component inside a notebook, keyed by AppID.
// Applets stay hidden from the audience until an instructor opts them in.
type Applet struct {
	AppID             string `bson:"appid" json:"appid"`
	AppName           string `bson:"appname" json:"appname"`
	PresentToStudents bool   `bson:"presentToStudents" json:"presentToStudents"`
}

// Notebook is an uploaded notebook file plus its applet set. IDs are
// caller-chosen, at most 9 characters, unique within the lecture.
type Notebook struct {
	ID              string      `bson:"id" json:"id"`
	Name            string      `bson:"name" json:"name"`
	Sha             ContentHash `bson:"sha" json:"sha"`
	MimeType        string      `bson:"mimetype" json:"mimetype"`
	Filename        string      `bson:"filename" json:"filename"`
	PresentDownload string      `bson:"presentDownload" json:"presentDownload"`
	Note            string      `bson:"note" json:"note"`
	Applets         []Applet    `bson:"applets,omitempty" json:"applets,omitempty"`
}

// LMSRef ties a lecture to its course in the learning platform.
type LMSRef struct {
	Issuer     string `bson:"iss,omitempty" json:"iss,omitempty"`
	CourseID   string `bson:"course_id,omitempty" json:"course_id,omitempty"`
	PlatformID string `bson:"platform_id,omitempty" json:"platform_id,omitempty"`
}

// LectureDocument is the persistent record of one lecture. It is created
// out of band; this service only mutates it through narrow field-scoped
// updates, never whole-document writes.
type LectureDocument struct {
	UUID               string              `bson:"uuid" json:"uuid"`
	Title              string              `bson:"title" json:"title"`
	CourseTitle        string              `bson:"coursetitle,omitempty" json:"coursetitle,omitempty"`
	Date               time.Time           `bson:"date,omitempty" json:"date,omitempty"`
	Owners             []string            `bson:"owners,omitempty" json:"owners,omitempty"`
	OwnersDisplayNames []string            `bson:"ownersdisplaynames,omitempty" json:"ownersdisplaynames,omitempty"`
	LMS                LMSRef              `bson:"lms,omitempty" json:"lms,omitempty"`
	AppVersion         string              `bson:"appversion,omitempty" json:"appversion,omitempty"`
	Features           []string            `bson:"features,omitempty" json:"features,omitempty"`
	Polls              []Poll              `bson:"polls,omitempty" json:"polls,omitempty"`
	Notebooks          []Notebook          `bson:"ipynbs,omitempty" json:"ipynbs,omitempty"`
	Pictures           []Asset             `bson:"pictures,omitempty" json:"pictures,omitempty"`
	BackgroundDoc      *BackgroundDocument `bson:"backgroundpdf,omitempty" json:"backgroundpdf,omitempty"`
	BackgroundDocInUse bool                `bson:"backgroundpdfuse,omitempty" json:"backgroundpdfuse,omitempty"`
	UsedPictures       []Asset             `bson:"usedpictures,omitempty" json:"usedpictures,omitempty"`
	UsedNotebooks      []Notebook          `bson:"usedipynbs,omitempty" json:"usedipynbs,omitempty"`
	Boards             []string            `bson:"boards,omitempty" json:"boards,omitempty"`
	BoardSaveTime      int64               `bson:"boardsavetime,omitempty" json:"boardsavetime,omitempty"`
	LastAccess         time.Time           `bson:"lastaccess,omitempty" json:"lastaccess,omitempty"`
}

// FindPoll locates a poll node anywhere in the forest.
func (l *LectureDocument) FindPoll(id string) *Poll {
	for i := range l.Polls {
		if l.Polls[i].ID == id {
			return &l.Polls[i]
		}
		for j := range l.Polls[i].Children {
			if l.Polls[i].Children[j].ID == id {
				return &l.Polls[i].Children[j]
			}
		}
	}
	return nil
}

// FindNotebook locates a notebook by its id.
func (l *LectureDocument) FindNotebook(id string) *Notebook {
	for i := range l.Notebooks {
		if l.Notebooks[i].ID == id {
			return &l.Notebooks[i]
		}
	}
	return nil
}

// OwnedBy reports whether the user uuid is one of the lecture owners.
func (l *LectureDocument) OwnedBy(userUUID string) bool {
	for _, o := range l.Owners {
		if o == userUUID {
			return true
		}
	}
	return false
}

// LectureSummary is the projection returned by lecture listings.
type LectureSummary struct {
	UUID        string    `bson:"uuid" json:"uuid"`
	Title       string    `bson:"title" json:"title"`
	CourseTitle string    `bson:"coursetitle,omitempty" json:"coursetitle,omitempty"`
	Date        time.Time `bson:"date,omitempty" json:"date,omitempty"`
	LMS         LMSRef    `bson:"lms,omitempty" json:"lms,omitempty"`
}

// RouterStatus is one AV router's capacity record, kept by the routers
// themselves and joined into the cluster snapshot.
type RouterStatus struct {
	URL           string   `bson:"url" json:"url"`
	Region        string   `bson:"region" json:"region"`
	NumClients    int      `bson:"numClients" json:"numClients"`
	LocalClients  []string `bson:"localClients,omitempty" json:"-"`
	RemoteClients []string `bson:"remoteClients,omitempty" json:"-"`
	PrimaryRealms []string `bson:"primaryRealms,omitempty" json:"-"`
}
