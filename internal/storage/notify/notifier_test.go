package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/models"
)

func TestSubscribePublishCancel(t *testing.T) {
	n := NewProfileNotifier(common.NewSilentLogger())

	ch, cancel := n.Subscribe("u1")
	assert.Equal(t, 1, n.SubscriberCount("u1"))

	n.Publish(models.Profile{UID: "u1", Plan: models.PlanPremium})

	got := <-ch
	assert.Equal(t, "u1", got.UID)
	assert.Equal(t, models.PlanPremium, got.Plan)

	cancel()
	assert.Equal(t, 0, n.SubscriberCount("u1"))

	// Channel is closed after cancel.
	_, open := <-ch
	assert.False(t, open)

	// Cancel is idempotent.
	cancel()
}

func TestPublishRoutesByUser(t *testing.T) {
	n := NewProfileNotifier(common.NewSilentLogger())

	ch1, cancel1 := n.Subscribe("u1")
	ch2, cancel2 := n.Subscribe("u2")
	defer cancel1()
	defer cancel2()

	n.Publish(models.Profile{UID: "u2"})

	select {
	case got := <-ch2:
		assert.Equal(t, "u2", got.UID)
	default:
		t.Fatal("u2 watcher should have received a snapshot")
	}

	select {
	case <-ch1:
		t.Fatal("u1 watcher should not receive u2 snapshots")
	default:
	}
}

func TestPublishSkipsSlowSubscriber(t *testing.T) {
	n := NewProfileNotifier(common.NewSilentLogger())

	ch, cancel := n.Subscribe("u1")
	defer cancel()

	// Fill the buffer and keep publishing; Publish must never block.
	for i := 0; i < subscriberBuffer+5; i++ {
		n.Publish(models.Profile{UID: "u1"})
	}

	require.Len(t, ch, subscriberBuffer)
}
