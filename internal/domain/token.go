package domain

import "github.com/golang-jwt/jwt/v5"

// Roles carried by app capability tokens.
const (
	RoleInstructor    = "instructor"
	RoleAudience      = "audience"
	RoleAdministrator = "administrator"
)

// Purposes of derived lecture tokens.
const (
	PurposeNotepad = "notepad"
	PurposeNotes   = "notes"
)

// UserRef identifies the authenticated user inside a claim set.
type UserRef struct {
	UserUUID    string `json:"useruuid"`
	DisplayName string `json:"displayname,omitempty"`
}

// CourseRef scopes a claim set to one lecture of a course.
type CourseRef struct {
	LectureUUID string `json:"lectureuuid"`
}

// AppClaims is the wide capability token minted by the auth collaborator.
// It is the parent every derived token narrows from.
type AppClaims struct {
	Course            CourseRef `json:"course"`
	User              UserRef   `json:"user"`
	Role              []string  `json:"role"`
	AppVersion        string    `json:"appversion,omitempty"`
	Features          []string  `json:"features,omitempty"`
	Context           string    `json:"context,omitempty"`
	RenewalsRemaining int       `json:"maxrenew"`
	jwt.RegisteredClaims
}

func (c *AppClaims) HasRole(role string) bool {
	for _, r := range c.Role {
		if r == role {
			return true
		}
	}
	return false
}

// LectureClaims is a narrowed per-screen token for exactly one purpose.
// It deliberately has no role set: possession of the token is the
// capability, and no field here can widen what the parent granted.
type LectureClaims struct {
	User              UserRef  `json:"user"`
	Purpose           string   `json:"purpose"`
	Name              string   `json:"name"`
	LectureUUID       string   `json:"lectureuuid"`
	AppVersion        string   `json:"appversion,omitempty"`
	Features          []string `json:"features,omitempty"`
	RenewalsRemaining int      `json:"maxrenew"`
	ScreenUUID        string   `json:"notescreenuuid"`
	NotepadHandler    string   `json:"notepadhandler,omitempty"`
	NotesHandler      string   `json:"noteshandler,omitempty"`
	jwt.RegisteredClaims
}
