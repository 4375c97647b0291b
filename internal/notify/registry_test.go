package notify

import (
	"context"
	"testing"
	"time"

	"github.com/example/lab-booking/internal/application"
)

func TestRegistry_BroadcastReachesAllSubscribers(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(4)
	chOwner, unsubscribeOwner := registry.Subscribe("user-1")
	chValidator, unsubscribeValidator := registry.Subscribe("validator-1")
	defer unsubscribeOwner()
	defer unsubscribeValidator()

	change := application.EventChange{EventID: "event-1", State: "VALIDATED", Timestamp: time.Now()}
	registry.Broadcast(change)

	for _, ch := range []<-chan application.EventChange{chOwner, chValidator} {
		select {
		case got := <-ch:
			if got.EventID != "event-1" {
				t.Fatalf("unexpected change %+v", got)
			}
		default:
			t.Fatal("expected a buffered change")
		}
	}
}

func TestRegistry_UnsubscribeClosesAndRemoves(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(1)
	ch, unsubscribe := registry.Subscribe("user-1")

	unsubscribe()
	if _, open := <-ch; open {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
	if registry.SubscriberCount() != 0 {
		t.Fatalf("expected empty registry, got %d subscribers", registry.SubscriberCount())
	}

	// A second call must be a no-op rather than a double close.
	unsubscribe()
}

func TestRegistry_SlowSubscriberIsSkipped(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(1)
	ch, unsubscribe := registry.Subscribe("user-1")
	defer unsubscribe()

	registry.Broadcast(application.EventChange{EventID: "event-1"})
	registry.Broadcast(application.EventChange{EventID: "event-2"})

	got := <-ch
	if got.EventID != "event-1" {
		t.Fatalf("expected first change, got %+v", got)
	}
	select {
	case unexpected := <-ch:
		t.Fatalf("expected overflow change to be dropped, got %+v", unexpected)
	default:
	}
}

type publisherStub struct {
	published []application.EventChange
	err       error
}

func (p *publisherStub) Publish(ctx context.Context, change application.EventChange) error {
	p.published = append(p.published, change)
	return p.err
}

func TestDispatcher_FansOutToRegistryAndPublisher(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(1)
	ch, unsubscribe := registry.Subscribe("user-1")
	defer unsubscribe()
	publisher := &publisherStub{}
	dispatcher := NewDispatcher(registry, publisher, nil)

	dispatcher.EventChanged(context.Background(), application.EventChange{EventID: "event-1"})

	if len(publisher.published) != 1 {
		t.Fatalf("expected one published change, got %d", len(publisher.published))
	}
	select {
	case got := <-ch:
		if got.EventID != "event-1" {
			t.Fatalf("unexpected change %+v", got)
		}
	default:
		t.Fatal("expected subscriber delivery")
	}
}
