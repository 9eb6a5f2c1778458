package hub

import (
	"testing"

	"github.com/smallbiznis/tradesmap/internal/profile/domain"
)

func TestPublishReachesOnlyMatchingUID(t *testing.T) {
	h := New()
	a, err := h.Subscribe("uid-a")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer a.Close()
	b, err := h.Subscribe("uid-b")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer b.Close()

	h.Publish("uid-a", domain.Profile{UID: "uid-a", FirstName: "Ann"})

	select {
	case p := <-a.Updates():
		if p.FirstName != "Ann" {
			t.Fatalf("unexpected profile %+v", p)
		}
	default:
		t.Fatal("expected update for uid-a")
	}
	select {
	case p := <-b.Updates():
		t.Fatalf("uid-b should not receive %+v", p)
	default:
	}
}

func TestPublishDropsWhenSubscriberIsFull(t *testing.T) {
	h := New()
	sub, err := h.Subscribe("uid")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	for i := 0; i < DefaultSubscriberBuffer+5; i++ {
		h.Publish("uid", domain.Profile{UID: "uid"})
	}
	if got := len(sub.Updates()); got != DefaultSubscriberBuffer {
		t.Fatalf("expected %d buffered updates, got %d", DefaultSubscriberBuffer, got)
	}
}

func TestCloseClosesChannelAndRemovesStream(t *testing.T) {
	h := New()
	sub, err := h.Subscribe("uid")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if h.Watchers("uid") != 1 {
		t.Fatalf("expected one watcher")
	}

	sub.Close()
	sub.Close()

	if _, ok := <-sub.Updates(); ok {
		t.Fatal("expected closed channel")
	}
	if h.Watchers("uid") != 0 {
		t.Fatalf("expected no watchers after close")
	}
	h.Publish("uid", domain.Profile{UID: "uid"})
}

func TestSubscribeRejectsBlankUID(t *testing.T) {
	if _, err := New().Subscribe("  "); err != ErrInvalidUID {
		t.Fatalf("expected ErrInvalidUID, got %v", err)
	}
	var h *Hub
	if _, err := h.Subscribe("uid"); err != ErrHubUnavailable {
		t.Fatalf("expected ErrHubUnavailable, got %v", err)
	}
}
