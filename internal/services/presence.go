package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/apierr"
	"github.com/chalkcast/appserver/internal/platform/logger"
	"github.com/chalkcast/appserver/internal/store/docstore"
	"github.com/chalkcast/appserver/internal/store/ephemeral"
)

// Liveness windows. A screen that has not checked in within its window
// is stale even if its key has not expired yet; idents churn faster.
const (
	screenLiveWindow = 20 * time.Minute
	identLiveWindow  = 5*time.Minute + 10*time.Second
)

// scanPattern matches the notescreen registry of every lecture without
// touching the per-screen hashes.
const scanPattern = "lecture:????????-????-????-????-????????????:notescreens"

const scanBatch = 40

// ScreenStatus is one projection screen's liveness record.
type ScreenStatus struct {
	UUID       string    `json:"uuid"`
	Active     bool      `json:"active"`
	LastAccess time.Time `json:"lastaccess"`
	Live       bool      `json:"live"`
}

// LectureLiveness is the per-lecture presence detail.
type LectureLiveness struct {
	LectureUUID string         `json:"uuid"`
	Screens     []ScreenStatus `json:"notescreens"`
	LiveScreens int            `json:"livenotescreens"`
	LiveIdents  int            `json:"liveidents"`
}

// CloudSnapshot joins router capacity records with the liveness of every
// lecture currently holding a screen registry.
type CloudSnapshot struct {
	Routers  []domain.RouterStatus `json:"avsrouters"`
	Lectures []LectureLiveness     `json:"lectures"`
}

// PresenceService reads the ephemeral presence registries written by the
// notes and notepad handlers. It never writes them.
type PresenceService interface {
	IsRunning(ctx context.Context, lectureUUID string) (bool, error)
	LiveDetail(ctx context.Context, lectureUUID string) (*LectureLiveness, error)
	CloudStatus(ctx context.Context) (*CloudSnapshot, error)
}

type presenceService struct {
	log  *logger.Logger
	eph  ephemeral.Store
	docs docstore.Store
	now  func() time.Time
}

func NewPresenceService(log *logger.Logger, eph ephemeral.Store, docs docstore.Store) PresenceService {
	return &presenceService{
		log:  log.With("service", "PresenceService"),
		eph:  eph,
		docs: docs,
		now:  time.Now,
	}
}

func screensKey(lectureUUID string) string {
	return "lecture:" + lectureUUID + ":notescreens"
}

func screenKey(lectureUUID, screenUUID string) string {
	return "lecture:" + lectureUUID + ":notescreen:" + screenUUID
}

func identsKey(lectureUUID string) string {
	return "lecture:" + lectureUUID + ":idents"
}

// IsRunning reports whether any screen is registered at all. Recency is
// deliberately not checked here: the registry keys expire on their own,
// and a lecture with a stale-but-present screen still counts as open.
func (ps *presenceService) IsRunning(ctx context.Context, lectureUUID string) (bool, error) {
	n, err := ps.eph.SCard(ctx, screensKey(lectureUUID))
	if err != nil {
		return false, apierr.StoreFailure(err)
	}
	return n > 0, nil
}

func (ps *presenceService) LiveDetail(ctx context.Context, lectureUUID string) (*LectureLiveness, error) {
	detail, err := ps.liveDetail(ctx, lectureUUID)
	if err != nil {
		return nil, apierr.StoreFailure(err)
	}
	return detail, nil
}

func (ps *presenceService) liveDetail(ctx context.Context, lectureUUID string) (*LectureLiveness, error) {
	now := ps.now()
	detail := &LectureLiveness{LectureUUID: lectureUUID}

	screens, err := ps.eph.SMembers(ctx, screensKey(lectureUUID))
	if err != nil {
		return nil, err
	}
	for _, screen := range screens {
		vals, err := ps.eph.HMGet(ctx, screenKey(lectureUUID, screen), "active", "lastaccess")
		if err != nil {
			return nil, err
		}
		status := ScreenStatus{UUID: screen}
		status.Active = vals[0] == "true" || vals[0] == "1"
		if ms, err := strconv.ParseInt(vals[1], 10, 64); err == nil {
			status.LastAccess = time.UnixMilli(ms)
		}
		status.Live = status.Active && !status.LastAccess.IsZero() &&
			now.Sub(status.LastAccess) <= screenLiveWindow
		if status.Live {
			detail.LiveScreens++
		}
		detail.Screens = append(detail.Screens, status)
	}

	idents, err := ps.eph.HGetAll(ctx, identsKey(lectureUUID))
	if err != nil {
		return nil, err
	}
	for _, raw := range idents {
		var rec struct {
			LastAccess int64 `json:"lastaccess"`
		}
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		if now.Sub(time.UnixMilli(rec.LastAccess)) <= identLiveWindow {
			detail.LiveIdents++
		}
	}
	return detail, nil
}

// CloudStatus walks the screen registries with a bounded cursor scan and
// fetches each lecture's detail concurrently.
func (ps *presenceService) CloudStatus(ctx context.Context) (*CloudSnapshot, error) {
	routers, err := ps.docs.Routers(ctx)
	if err != nil {
		return nil, apierr.StoreFailure(err)
	}
	snap := &CloudSnapshot{Routers: routers}

	var keys []string
	cursor := uint64(0)
	for {
		batch, next, err := ps.eph.Scan(ctx, cursor, scanPattern, scanBatch)
		if err != nil {
			return nil, apierr.StoreFailure(err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			break
		}
		cursor = next
	}

	details := make([]*LectureLiveness, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		lectureUUID := strings.TrimSuffix(strings.TrimPrefix(key, "lecture:"), ":notescreens")
		g.Go(func() error {
			detail, err := ps.liveDetail(gctx, lectureUUID)
			if err != nil {
				return err
			}
			details[i] = detail
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apierr.StoreFailure(err)
	}
	for _, detail := range details {
		if detail != nil {
			snap.Lectures = append(snap.Lectures, *detail)
		}
	}
	return snap, nil
}
