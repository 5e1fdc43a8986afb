package app

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/chalkcast/appserver/internal/domain"
)

func wireRouter(cfg Config, h Handlers, mw Middleware) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	if cfg.OtelEnabled {
		router.Use(otelgin.Middleware("appserver"))
	}

	router.GET("/healthcheck", h.Health.HealthCheck)

	auth := router.Group("/")
	auth.Use(mw.Auth.RequireAuth())

	participant := mw.Auth.RequireRole(domain.RoleInstructor, domain.RoleAudience)
	instructor := mw.Auth.RequireRole(domain.RoleInstructor)
	admin := mw.Auth.RequireRole(domain.RoleAdministrator)

	// token chain
	auth.POST("/app/token", participant, h.Token.Renew)
	auth.GET("/app/notepadtoken", instructor, h.Token.NotepadToken)
	auth.GET("/app/notestoken", participant, h.Token.NotesToken)
	auth.POST("/app/pairing", participant, h.Pairing.Announce)

	// lecture reads
	auth.GET("/lecture", participant, h.Lecture.GetLecture)
	auth.GET("/lectures", instructor, h.Lecture.ListLectures)
	auth.GET("/lecture/exportdata", participant, h.Lecture.ExportData)

	// lecture mutations (instructor only)
	auth.PATCH("/lecture/date", instructor, h.Lecture.SetSchedule)
	auth.PATCH("/lecture/displaynames", instructor, h.Lecture.EditDisplayNames)
	auth.PATCH("/lecture/polls", instructor, h.Lecture.PatchPolls)
	auth.POST("/lecture/copy", instructor, h.Lecture.Copy)
	auth.POST("/lecture/picture", instructor, h.Asset.UploadPicture)
	auth.POST("/lecture/ipynb", instructor, h.Asset.UploadNotebook)
	auth.PATCH("/lecture/ipynb", instructor, h.Asset.PatchNotebook)
	auth.POST("/lecture/bgpdf", instructor, h.Asset.UploadBackground)
	auth.DELETE("/lecture/bgpdf", instructor, h.Asset.ResetBackground)

	// course-wide patches
	auth.PATCH("/course/appversion", instructor, h.Lecture.SetCourseAppVersion)
	auth.PATCH("/course/features", instructor, h.Lecture.SetCourseFeatures)

	// cluster snapshot
	auth.GET("/cloudstatus", admin, h.Cloud.CloudStatus)

	return router
}
