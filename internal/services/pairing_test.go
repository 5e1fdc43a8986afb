package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/apierr"
	"github.com/chalkcast/appserver/internal/store/ephemeral"
)

func testPairingService(t *testing.T) (PairingService, *ephemeral.Memory) {
	t.Helper()
	eph := ephemeral.NewMemory()
	return NewPairingService(mustTestLogger(t), eph), eph
}

func TestAnnounceRejectsUnknownID(t *testing.T) {
	ps, _ := testPairingService(t)
	err := ps.Announce(context.Background(), "abcdefgh1234", PairingOffer{LectureID: uuid.NewString()})
	if !apierr.IsCode(err, apierr.CodeMalformedInput) {
		t.Fatalf("announce to nobody: err = %v, want malformed_input", err)
	}
}

func TestAnnounceRejectsBadCharset(t *testing.T) {
	ps, eph := testPairingService(t)
	eph.SeedKey("auth::bad id!", "1")
	for _, id := range []string{"bad id!", "short", "auth::injected"} {
		if err := ps.Announce(context.Background(), id, PairingOffer{}); !apierr.IsCode(err, apierr.CodeMalformedInput) {
			t.Fatalf("id %q: err = %v, want malformed_input", id, err)
		}
	}
}

func TestAnnounceDeliversToWaitingSide(t *testing.T) {
	ps, eph := testPairingService(t)
	ctx := context.Background()
	pairingID := "YWJjZGVmZ2hpamts"
	eph.SeedKey("auth::"+pairingID, "1")

	sub, err := ps.Subscribe(ctx, pairingID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	offer := PairingOffer{
		User:       domain.UserRef{UserUUID: uuid.NewString(), DisplayName: "Dr. Example"},
		LectureID:  uuid.NewString(),
		AppVersion: domain.AppVersionStable,
		Features:   []string{domain.FeatureAVBroadcast},
	}
	if err := ps.Announce(ctx, pairingID, offer); err != nil {
		t.Fatalf("Announce: %v", err)
	}

	select {
	case payload := <-sub.Messages():
		var got PairingOffer
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("unmarshal offer: %v", err)
		}
		if got.LectureID != offer.LectureID || got.User.UserUUID != offer.User.UserUUID {
			t.Fatalf("offer = %+v, want %+v", got, offer)
		}
	case <-time.After(time.Second):
		t.Fatalf("no offer delivered")
	}
}

func TestAnnounceIsOneShot(t *testing.T) {
	ps, eph := testPairingService(t)
	ctx := context.Background()
	pairingID := "YWJjZGVmZ2hpamts"
	eph.SeedKey("auth::"+pairingID, "1")

	// nobody subscribed: the publish succeeds and the offer is simply gone
	if err := ps.Announce(ctx, pairingID, PairingOffer{LectureID: uuid.NewString()}); err != nil {
		t.Fatalf("Announce without subscriber: %v", err)
	}

	sub, err := ps.Subscribe(ctx, pairingID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	select {
	case payload := <-sub.Messages():
		t.Fatalf("late subscriber received a replay: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}
