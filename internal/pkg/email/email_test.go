package email

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSendRideReminder(t *testing.T) {
	s := NewEmailService(SMTPConfig{
		Host:      "smtp.example.com",
		Port:      587,
		FromName:  "MotoBuddies",
		FromEmail: "rides@example.com",
		BaseURL:   "https://motobuddies.app/",
	}, zerolog.Nop())

	var gotTo, gotMsg string
	s.send = func(to, msg string) error {
		gotTo, gotMsg = to, msg
		return nil
	}

	err := s.SendRideReminder(RideReminder{
		ToEmail:   "ana@example.com",
		RideTitle: "Dawn <patrol>",
		GroupName: "Alpine crew",
		StartsAt:  time.Date(2026, 6, 14, 6, 30, 0, 0, time.UTC),
		Link:      "/rides/42",
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotTo != "ana@example.com" {
		t.Fatalf("to = %q", gotTo)
	}
	for _, want := range []string{
		"From: MotoBuddies <rides@example.com>",
		"Subject: Ride reminder: Dawn <patrol>",
		`href="https://motobuddies.app/rides/42"`,
		"Dawn &lt;patrol&gt;",
		"Hello rider,",
		"Sun 14 Jun 06:30 UTC",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSendRideReminderWithoutServer(t *testing.T) {
	s := NewEmailService(SMTPConfig{}, zerolog.Nop())
	s.send = func(string, string) error {
		t.Fatal("send must not be called without a host")
		return nil
	}
	if err := s.SendRideReminder(RideReminder{ToEmail: "a@b.c"}); err != nil {
		t.Fatal(err)
	}
}
