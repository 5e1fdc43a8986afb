package app

import (
	"fmt"

	"github.com/chalkcast/appserver/internal/platform/logger"
	"github.com/chalkcast/appserver/internal/store/blob"
	"github.com/chalkcast/appserver/internal/store/docstore"
	"github.com/chalkcast/appserver/internal/store/ephemeral"
)

// Clients holds the external store connections.
type Clients struct {
	Docs  docstore.Store
	Eph   ephemeral.Store
	Blobs blob.Store
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	docs, err := docstore.NewMongo(log, cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		return Clients{}, fmt.Errorf("init document store: %w", err)
	}
	eph, err := ephemeral.NewRedis(log, cfg.RedisAddr)
	if err != nil {
		return Clients{}, fmt.Errorf("init ephemeral store: %w", err)
	}
	blobs, err := blob.NewGCS(log, cfg.GCSBucket, cfg.CDNDomain, cfg.GCSCredentialsFile)
	if err != nil {
		return Clients{}, fmt.Errorf("init blob store: %w", err)
	}
	return Clients{Docs: docs, Eph: eph, Blobs: blobs}, nil
}
