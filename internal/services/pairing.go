package services

import (
	"context"
	"encoding/json"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/apierr"
	"github.com/chalkcast/appserver/internal/platform/logger"
	"github.com/chalkcast/appserver/internal/store/ephemeral"
)

const pairingChannelPrefix = "auth::"

// PairingOffer is the payload handed from an authenticated session to the
// device waiting on the pairing channel.
type PairingOffer struct {
	User       domain.UserRef `json:"user"`
	LectureID  string         `json:"lectureuuid"`
	AppVersion string         `json:"appversion,omitempty"`
	Features   []string       `json:"features,omitempty"`
}

// PairingService links an unauthenticated device to an authenticated
// session over a one-shot rendezvous channel. The waiting side creates
// the channel key; announcing to an id nobody is waiting on is rejected.
// Nothing is queued: a missed publish simply never arrives.
type PairingService interface {
	Announce(ctx context.Context, pairingID string, offer PairingOffer) error
	Subscribe(ctx context.Context, pairingID string) (ephemeral.Subscription, error)
}

type pairingService struct {
	log *logger.Logger
	eph ephemeral.Store
}

func NewPairingService(log *logger.Logger, eph ephemeral.Store) PairingService {
	return &pairingService{
		log: log.With("service", "PairingService"),
		eph: eph,
	}
}

func validPairingID(id string) bool {
	if len(id) < 8 || len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '+' || r == '/' || r == '=':
		default:
			return false
		}
	}
	return true
}

func (ps *pairingService) Announce(ctx context.Context, pairingID string, offer PairingOffer) error {
	if !validPairingID(pairingID) {
		return apierr.Malformed("pairing id")
	}
	key := pairingChannelPrefix + pairingID
	ok, err := ps.eph.Exists(ctx, key)
	if err != nil {
		return apierr.StoreFailure(err)
	}
	if !ok {
		return apierr.Malformed("unknown id")
	}
	payload, err := json.Marshal(offer)
	if err != nil {
		return apierr.StoreFailure(err)
	}
	if err := ps.eph.Publish(ctx, key, payload); err != nil {
		return apierr.StoreFailure(err)
	}
	ps.log.Debug("announced pairing offer", "lecture", offer.LectureID)
	return nil
}

func (ps *pairingService) Subscribe(ctx context.Context, pairingID string) (ephemeral.Subscription, error) {
	if !validPairingID(pairingID) {
		return nil, apierr.Malformed("pairing id")
	}
	sub, err := ps.eph.Subscribe(ctx, pairingChannelPrefix+pairingID)
	if err != nil {
		return nil, apierr.StoreFailure(err)
	}
	return sub, nil
}
