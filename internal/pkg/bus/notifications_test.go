package bus

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestDecodeNotification(t *testing.T) {
	user := uuid.New()
	n, err := decodeNotification([]byte(`{"id":"` + uuid.NewString() + `","userId":"` + user.String() + `","type":"rsvp","title":"t","body":"b"}`))
	if err != nil {
		t.Fatal(err)
	}
	if n.UserID != user || n.Type != "rsvp" {
		t.Fatalf("decoded %+v", n)
	}

	for _, raw := range []string{`{`, `{"title":"no user"}`} {
		if _, err := decodeNotification([]byte(raw)); err == nil {
			t.Errorf("decodeNotification(%s) expected error", raw)
		}
	}
}

func TestNilBus(t *testing.T) {
	var b *Bus
	b.Close()
	if err := b.Publish(context.Background(), "x", 1); err == nil {
		t.Fatal("expected error from nil bus")
	}
}
