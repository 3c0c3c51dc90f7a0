package ws

import (
	"testing"
	"time"

	"github.com/heliumweb/helium/backend/internal/shared/types"
)

func TestPublishReachesSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a := hub.Subscribe()
	b := hub.Subscribe()
	if hub.Subscribers() != 2 {
		t.Fatalf("Expected 2 subscribers, got %d", hub.Subscribers())
	}

	hub.Publish(types.Event{Type: "extension.installed", ExtensionID: "demo-1.0", Time: time.Now()})

	for _, ch := range []chan types.Event{a, b} {
		select {
		case event := <-ch:
			if event.Type != "extension.installed" {
				t.Errorf("Unexpected event type %s", event.Type)
			}
		default:
			t.Error("Expected event to be buffered")
		}
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch := hub.Subscribe()
	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish(types.Event{Type: "extension.loaded"})
	}

	// Buffer holds at most subscriberBuffer events; the rest were dropped
	if len(ch) != subscriberBuffer {
		t.Errorf("Expected full buffer of %d, got %d", subscriberBuffer, len(ch))
	}
}

func TestUnsubscribeCloses(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()

	hub.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("Expected closed channel")
	}
	if hub.Subscribers() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", hub.Subscribers())
	}

	// Double unsubscribe must not panic
	hub.Unsubscribe(ch)
}

func TestCloseDropsAll(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	hub.Close()

	if _, ok := <-ch; ok {
		t.Error("Expected closed channel after hub close")
	}

	// Subscribing after close yields a closed channel
	late := hub.Subscribe()
	if _, ok := <-late; ok {
		t.Error("Expected closed channel for late subscriber")
	}
}
