package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/middleware"
	"github.com/chalkcast/appserver/internal/services"
)

type LectureHandler struct {
	lectures services.LectureService
}

func NewLectureHandler(lectures services.LectureService) *LectureHandler {
	return &LectureHandler{lectures: lectures}
}

// GET /lecture
// Role-shaped lecture detail; the lecture is the one the token is scoped to.
func (lh *LectureHandler) GetLecture(c *gin.Context) {
	claims := middleware.Claims(c)
	view, err := lh.lectures.View(c.Request.Context(), claims.Course.LectureUUID, claims.HasRole(domain.RoleInstructor))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GET /lectures
func (lh *LectureHandler) ListLectures(c *gin.Context) {
	claims := middleware.Claims(c)
	list, err := lh.lectures.List(c.Request.Context(), claims.Course.LectureUUID, claims.User.UserUUID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lectures": list})
}

// PATCH /lecture/date
// body: { "date": "2026-09-14T10:15:00Z" }
func (lh *LectureHandler) SetSchedule(c *gin.Context) {
	var req struct {
		Date time.Time `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "date"}})
		return
	}
	claims := middleware.Claims(c)
	if err := lh.lectures.SetSchedule(c.Request.Context(), claims.Course.LectureUUID, req.Date); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PATCH /lecture/displaynames
// body: { "displaynames": ["...", ...] }
func (lh *LectureHandler) EditDisplayNames(c *gin.Context) {
	var req struct {
		DisplayNames []string `json:"displaynames"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "displaynames"}})
		return
	}
	claims := middleware.Claims(c)
	if err := lh.lectures.EditDisplayNames(c.Request.Context(), claims.Course.LectureUUID, claims.User.DisplayName, req.DisplayNames); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PATCH /course/appversion
// body: { "appversion": "stable" | "experimental" }
func (lh *LectureHandler) SetCourseAppVersion(c *gin.Context) {
	var req struct {
		AppVersion string `json:"appversion"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "appversion"}})
		return
	}
	claims := middleware.Claims(c)
	if err := lh.lectures.SetCourseAppVersion(c.Request.Context(), claims.Course.LectureUUID, req.AppVersion); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PATCH /course/features
// body: { "features": ["avbroadcast", "jupyter"] }
func (lh *LectureHandler) SetCourseFeatures(c *gin.Context) {
	var req struct {
		Features []string `json:"features"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "features"}})
		return
	}
	claims := middleware.Claims(c)
	if err := lh.lectures.SetCourseFeatures(c.Request.Context(), claims.Course.LectureUUID, req.Features); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type pollEntry struct {
	ID       string  `json:"id"`
	ParentID string  `json:"parentid"`
	Name     *string `json:"name"`
	Multi    *bool   `json:"multi"`
	Note     *string `json:"note"`
}

// PATCH /lecture/polls
// body: { "polls": [...] } or { "removepolls": [...] } — never both.
func (lh *LectureHandler) PatchPolls(c *gin.Context) {
	var req struct {
		Polls       []pollEntry `json:"polls"`
		RemovePolls []pollEntry `json:"removepolls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "polls"}})
		return
	}
	if (len(req.Polls) > 0) == (len(req.RemovePolls) > 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "exactly one of polls and removepolls"}})
		return
	}
	claims := middleware.Claims(c)
	lectureUUID := claims.Course.LectureUUID
	ctx := c.Request.Context()

	for _, entry := range req.Polls {
		patch := services.PollPatch{
			ID:       entry.ID,
			ParentID: entry.ParentID,
			Name:     entry.Name,
			Multi:    entry.Multi,
			Note:     entry.Note,
		}
		if err := lh.lectures.UpsertPoll(ctx, lectureUUID, patch); err != nil {
			respondError(c, err)
			return
		}
	}
	for _, entry := range req.RemovePolls {
		if err := lh.lectures.RemovePoll(ctx, lectureUUID, entry.ID, entry.ParentID); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// POST /lecture/copy
// body: { "fromuuid": "...", "what": "pictures" | "polls" | "ipynbs" | "lecture" | "all" }
func (lh *LectureHandler) Copy(c *gin.Context) {
	var req struct {
		FromUUID string `json:"fromuuid"`
		What     string `json:"what"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "copy request"}})
		return
	}
	claims := middleware.Claims(c)
	err := lh.lectures.CopyFrom(c.Request.Context(), req.FromUUID, claims.Course.LectureUUID, req.What, claims.User.UserUUID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /lecture/exportdata
// Projection-data bundle; only owners may pull it.
func (lh *LectureHandler) ExportData(c *gin.Context) {
	claims := middleware.Claims(c)
	export, err := lh.lectures.Export(c.Request.Context(), claims.Course.LectureUUID, claims.User.UserUUID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, export)
}
