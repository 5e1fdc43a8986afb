package app

import (
	"github.com/chalkcast/appserver/internal/handlers"
	"github.com/chalkcast/appserver/internal/middleware"
	"github.com/chalkcast/appserver/internal/platform/logger"
	"github.com/chalkcast/appserver/internal/services"
)

type Services struct {
	Tokens   services.TokenService
	Assets   services.AssetService
	Lectures services.LectureService
	Presence services.PresenceService
	Pairing  services.PairingService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients) (Services, error) {
	tokens, err := services.NewTokenService(log, services.TokenConfig{
		AppSecret:     cfg.AppTokenSecret,
		LectureSecret: cfg.LectureTokenSecret,
		NotesSecret:   cfg.NotesTokenSecret,
		AppTTL:        cfg.AppTokenTTL,
		DerivedTTL:    cfg.DerivedTokenTTL,
		NotepadURL:    cfg.NotepadURL,
		NotesURL:      cfg.NotesURL,
	})
	if err != nil {
		return Services{}, err
	}
	assets := services.NewAssetService(log, clients.Blobs, clients.Eph)
	presence := services.NewPresenceService(log, clients.Eph, clients.Docs)
	lectures := services.NewLectureService(log, clients.Docs, assets, presence)
	pairing := services.NewPairingService(log, clients.Eph)
	return Services{
		Tokens:   tokens,
		Assets:   assets,
		Lectures: lectures,
		Presence: presence,
		Pairing:  pairing,
	}, nil
}

type Handlers struct {
	Health  *handlers.HealthHandler
	Token   *handlers.TokenHandler
	Lecture *handlers.LectureHandler
	Asset   *handlers.AssetHandler
	Cloud   *handlers.CloudHandler
	Pairing *handlers.PairingHandler
}

func wireHandlers(svcs Services) Handlers {
	return Handlers{
		Health:  handlers.NewHealthHandler(),
		Token:   handlers.NewTokenHandler(svcs.Tokens),
		Lecture: handlers.NewLectureHandler(svcs.Lectures),
		Asset:   handlers.NewAssetHandler(svcs.Lectures, svcs.Assets),
		Cloud:   handlers.NewCloudHandler(svcs.Presence),
		Pairing: handlers.NewPairingHandler(svcs.Pairing),
	}
}

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, svcs Services) Middleware {
	return Middleware{Auth: middleware.NewAuthMiddleware(log, svcs.Tokens)}
}
