package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/pkg/email"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.RideReminder
	fail map[string]bool
}

func (m *recordingMailer) SendRideReminder(r email.RideReminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[r.ToEmail] {
		return errors.New("smtp: mailbox unavailable")
	}
	m.sent = append(m.sent, r)
	return nil
}

func TestSendReminders(t *testing.T) {
	l := newLupi(nil)
	ctx := context.Background()
	sara := l.f.w.addUser("Sara")
	l.f.w.addGroup("Solo", "SOLO01", sara)

	soon := l.f.w.addRide(l.group.ID, l.marco, "Stelvio", l.f.now.Add(6*time.Hour))
	later := l.f.w.addRide(l.group.ID, l.marco, "Gavia", l.f.now.Add(72*time.Hour))
	l.f.w.setRSVP(soon.ID, l.giulia, models.RSVPAttending)
	l.f.w.setRSVP(soon.ID, l.luca, models.RSVPMaybe)
	l.f.w.setRSVP(soon.ID, l.marco, models.RSVPDeclined)
	l.f.w.setRSVP(later.ID, l.giulia, models.RSVPAttending)

	mailer := &recordingMailer{}
	svc := NewReminderService(
		fakeRides{l.f.w}, fakeParticipants{l.f.w}, fakeProfiles{l.f.w},
		l.f.notify, mailer, time.UTC, testLogger(),
	).(*reminderServiceImpl)
	svc.now = func() time.Time { return l.f.now }

	res, err := svc.SendReminders(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if res.Rides != 1 || res.Notifications != 2 || res.Emails != 2 {
		t.Fatalf("result = %+v", res)
	}
	if got := l.f.w.notificationsFor(l.giulia); len(got) != 1 || got[0].Type != models.NotificationRideReminder {
		t.Fatalf("giulia notifications = %+v", got)
	}
	if len(l.f.w.notificationsFor(l.marco)) != 0 {
		t.Fatal("declined rider reminded")
	}
	for _, m := range mailer.sent {
		if m.RideTitle != "Stelvio" || m.GroupName != "Lupi della Strada" || m.Link != "/rides/"+soon.ID.String() {
			t.Fatalf("email = %+v", m)
		}
	}
}

func TestSendRemindersEmailFailureIsCounted(t *testing.T) {
	l := newLupi(nil)
	ride := l.f.w.addRide(l.group.ID, l.marco, "Stelvio", l.f.now.Add(time.Hour))
	l.f.w.setRSVP(ride.ID, l.giulia, models.RSVPAttending)
	l.f.w.setRSVP(ride.ID, l.luca, models.RSVPAttending)

	mailer := &recordingMailer{fail: map[string]bool{"luca@example.com": true}}
	svc := NewReminderService(
		fakeRides{l.f.w}, fakeParticipants{l.f.w}, fakeProfiles{l.f.w},
		l.f.notify, mailer, nil, testLogger(),
	).(*reminderServiceImpl)
	svc.now = func() time.Time { return l.f.now }

	res, err := svc.SendReminders(context.Background(), 2*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if res.Notifications != 2 || res.Emails != 1 {
		t.Fatalf("result = %+v", res)
	}

	if _, err := svc.SendReminders(context.Background(), 0); err == nil {
		t.Fatal("zero window should be rejected")
	}
}
