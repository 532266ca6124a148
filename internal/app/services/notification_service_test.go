package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

func draftOf(t models.NotificationType) models.NotificationDraft {
	return models.NotificationDraft{Type: t, Title: "title", Body: "body"}
}

func TestNotifyGroupExcludesActor(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	marco := f.w.addUser("Marco")
	giulia := f.w.addUser("Giulia")
	luca := f.w.addUser("Luca")
	g := f.w.addGroup("Lupi", "LUPI01", marco, giulia, luca)

	n, err := f.notify.NotifyGroup(ctx, g.ID, luca, draftOf(models.NotificationNewMember))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	if len(f.w.notificationsFor(luca)) != 0 {
		t.Fatal("actor was notified")
	}
	if len(f.w.notificationsFor(marco)) != 1 || len(f.w.notificationsFor(giulia)) != 1 {
		t.Fatal("members not notified exactly once")
	}
	if f.w.insertBatchCalls != 1 {
		t.Fatalf("insert batches = %d, want 1", f.w.insertBatchCalls)
	}
	if f.pub.count() != 2 {
		t.Fatalf("published = %d, want 2", f.pub.count())
	}
}

func TestNotifyGroupMissingGroup(t *testing.T) {
	f := newFixture(nil)
	_, err := f.notify.NotifyGroup(context.Background(), uuid.New(), uuid.New(), draftOf(models.NotificationNewMember))
	assertKind(t, err, apperrors.KindNotFound)
}

func TestNotifyRideCreatorSkipsSelf(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	marco := f.w.addUser("Marco")
	giulia := f.w.addUser("Giulia")
	g := f.w.addGroup("Lupi", "LUPI01", marco, giulia)
	ride := f.w.addRide(g.ID, marco, "Stelvio", f.now.Add(48*time.Hour))

	n, err := f.notify.NotifyRideCreator(ctx, ride.ID, marco, draftOf(models.NotificationRSVP))
	if err != nil || n != 0 {
		t.Fatalf("self rsvp: n=%d err=%v", n, err)
	}
	if f.w.insertBatchCalls != 0 {
		t.Fatal("empty audience should not touch the store")
	}

	n, err = f.notify.NotifyRideCreator(ctx, ride.ID, giulia, draftOf(models.NotificationRSVP))
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if got := f.w.notificationsFor(marco); len(got) != 1 || got[0].Type != models.NotificationRSVP {
		t.Fatalf("creator notifications = %+v", got)
	}
}

func TestNotifyRideParticipantsOnlyAttendingAndMaybe(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	marco := f.w.addUser("Marco")
	giulia := f.w.addUser("Giulia")
	luca := f.w.addUser("Luca")
	sara := f.w.addUser("Sara")
	g := f.w.addGroup("Lupi", "LUPI01", marco, giulia, luca, sara)
	ride := f.w.addRide(g.ID, marco, "Stelvio", f.now)
	f.w.setRSVP(ride.ID, giulia, models.RSVPAttending)
	f.w.setRSVP(ride.ID, luca, models.RSVPMaybe)
	f.w.setRSVP(ride.ID, sara, models.RSVPDeclined)

	n, err := f.notify.NotifyRideParticipants(ctx, ride.ID, draftOf(models.NotificationRideReminder))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	if len(f.w.notificationsFor(sara)) != 0 || len(f.w.notificationsFor(marco)) != 0 {
		t.Fatal("declined rider or non-participant notified")
	}
}

func TestDispatchTargets(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	marco := f.w.addUser("Marco")
	giulia := f.w.addUser("Giulia")
	luca := f.w.addUser("Luca")
	g := f.w.addGroup("Lupi", "LUPI01", marco, giulia, luca)
	ride := f.w.addRide(g.ID, marco, "Stelvio", f.now)
	missing := uuid.New()

	tests := []struct {
		name    string
		req     DispatchRequest
		want    int
		wantErr apperrors.Kind
	}{
		{"group wins over ride", DispatchRequest{GroupID: &g.ID, RideID: &ride.ID, ExceptUserID: giulia}, 2, ""},
		{"ride creator", DispatchRequest{RideID: &ride.ID, ExceptUserID: giulia}, 1, ""},
		{"ride creator excepted", DispatchRequest{RideID: &ride.ID, ExceptUserID: marco}, 0, ""},
		{"no target", DispatchRequest{ExceptUserID: giulia}, 0, ""},
		{"missing ride", DispatchRequest{RideID: &missing, ExceptUserID: giulia}, 0, apperrors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Draft = draftOf(models.NotificationNewRide)
			n, err := f.notify.Dispatch(ctx, tt.req)
			if tt.wantErr != "" {
				assertKind(t, err, tt.wantErr)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if n != tt.want {
				t.Fatalf("count = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestDispatchBySignedInSender(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	marco := f.w.addUser("Marco")
	giulia := f.w.addUser("Giulia")
	outsider := f.w.addUser("Sara")
	g := f.w.addGroup("Lupi", "LUPI01", marco, giulia)
	ride := f.w.addRide(g.ID, marco, "Stelvio", f.now)

	tests := []struct {
		name    string
		req     DispatchRequest
		want    int
		wantErr apperrors.Kind
	}{
		{"member as self", DispatchRequest{GroupID: &g.ID, ExceptUserID: giulia, SenderID: &giulia}, 1, ""},
		{"forged except", DispatchRequest{GroupID: &g.ID, ExceptUserID: marco, SenderID: &giulia}, 0, apperrors.KindForbidden},
		{"outsider to group", DispatchRequest{GroupID: &g.ID, ExceptUserID: outsider, SenderID: &outsider}, 0, apperrors.KindForbidden},
		{"outsider to ride", DispatchRequest{RideID: &ride.ID, ExceptUserID: outsider, SenderID: &outsider}, 0, apperrors.KindForbidden},
		{"member to ride", DispatchRequest{RideID: &ride.ID, ExceptUserID: giulia, SenderID: &giulia}, 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Draft = draftOf(models.NotificationNewRide)
			n, err := f.notify.Dispatch(ctx, tt.req)
			if tt.wantErr != "" {
				assertKind(t, err, tt.wantErr)
				if n != 0 {
					t.Fatalf("count = %d on a rejected request", n)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if n != tt.want {
				t.Fatalf("count = %d, want %d", n, tt.want)
			}
		})
	}
	if len(f.w.notificationsFor(outsider)) != 0 {
		t.Fatal("outsider received a notification")
	}
}

func TestFanOutBatchFailureIsSingleError(t *testing.T) {
	f := newFixture(nil)
	marco := f.w.addUser("Marco")
	giulia := f.w.addUser("Giulia")
	g := f.w.addGroup("Lupi", "LUPI01", marco, giulia)
	f.w.failInsertBatch = errors.New("connection reset")

	_, err := f.notify.NotifyGroup(context.Background(), g.ID, uuid.Nil, draftOf(models.NotificationNewRide))
	if err == nil {
		t.Fatal("expected error")
	}
	if f.pub.count() != 0 {
		t.Fatal("nothing should be published after a failed insert")
	}
}

func TestFanOutRejectsUnknownType(t *testing.T) {
	f := newFixture(nil)
	marco := f.w.addUser("Marco")
	g := f.w.addGroup("Lupi", "LUPI01", marco)

	_, err := f.notify.NotifyGroup(context.Background(), g.ID, uuid.Nil, draftOf("party"))
	assertKind(t, err, apperrors.KindValidation)
}

func TestInboxListAndMarkRead(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	marco := f.w.addUser("Marco")
	giulia := f.w.addUser("Giulia")
	g := f.w.addGroup("Lupi", "LUPI01", marco, giulia)

	for i := 0; i < 25; i++ {
		if _, err := f.notify.NotifyGroup(ctx, g.ID, giulia, draftOf(models.NotificationNewRide)); err != nil {
			t.Fatal(err)
		}
	}

	items, unread, err := f.notify.List(ctx, marco)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != inboxLimit || unread != 25 {
		t.Fatalf("items=%d unread=%d", len(items), unread)
	}

	if err := f.notify.MarkRead(ctx, items[0].ID, marco); err != nil {
		t.Fatal(err)
	}
	assertIs(t, f.notify.MarkRead(ctx, items[0].ID, giulia), apperrors.ErrNotificationNotFound)

	n, err := f.notify.MarkAllRead(ctx, marco)
	if err != nil || n != 24 {
		t.Fatalf("MarkAllRead = %d, %v", n, err)
	}
	if _, unread, _ = f.notify.List(ctx, marco); unread != 0 {
		t.Fatalf("unread = %d after mark all", unread)
	}
}
