// internal/bus/bus_test.go
package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/tourguard-cli/api/schemas"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublishSubscribe(t *testing.T) {
	b := New(zaptest.NewLogger(t), 4)
	defer b.Shutdown()

	ch, unsubscribe := b.Subscribe(schemas.EventTourStarted)
	defer unsubscribe()

	payload := schemas.TourEventPayload{TourID: "onboarding-basics", Timestamp: time.Now()}
	require.NoError(t, b.Publish(context.Background(), schemas.EventTourStarted, payload))

	select {
	case evt := <-ch:
		assert.Equal(t, schemas.EventTourStarted, evt.Type)
		assert.NotEmpty(t, evt.ID)
		got, ok := evt.Payload.(schemas.TourEventPayload)
		require.True(t, ok)
		assert.Equal(t, "onboarding-basics", got.TourID)
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
}

func TestPublishWithoutSubscribersIsANoOp(t *testing.T) {
	b := New(zaptest.NewLogger(t), 4)
	defer b.Shutdown()
	assert.NoError(t, b.Publish(context.Background(), schemas.EventTourCompleted, nil))
}

func TestSubscriberOnlySeesItsTypes(t *testing.T) {
	b := New(zaptest.NewLogger(t), 4)
	defer b.Shutdown()

	ch, unsubscribe := b.Subscribe(schemas.EventTourError)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), schemas.EventTourStarted, nil))
	require.NoError(t, b.Publish(context.Background(), schemas.EventTourError, nil))

	evt := <-ch
	assert.Equal(t, schemas.EventTourError, evt.Type)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra event %s", extra.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New(zaptest.NewLogger(t), 1)
	defer b.Shutdown()

	_, unsubscribe := b.Subscribe(schemas.EventTourStepStarted)
	defer unsubscribe()

	// Buffer of one: the second publish must drop, not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Publish(context.Background(), schemas.EventTourStepStarted, 1)
		_ = b.Publish(context.Background(), schemas.EventTourStepStarted, 2)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New(zaptest.NewLogger(t), 4)
	defer b.Shutdown()

	_, unsubscribe := b.Subscribe(schemas.EventTourStarted)
	unsubscribe()
	unsubscribe()

	assert.NoError(t, b.Publish(context.Background(), schemas.EventTourStarted, nil))
}

func TestShutdownClosesSubscribersAndRejectsPublish(t *testing.T) {
	b := New(zaptest.NewLogger(t), 4)
	ch, unsubscribe := b.Subscribe(schemas.EventTourStarted, schemas.EventTourCompleted)

	b.Shutdown()

	_, open := <-ch
	assert.False(t, open, "subscriber channel must be closed")

	assert.Error(t, b.Publish(context.Background(), schemas.EventTourStarted, nil))

	// Unsubscribing after shutdown must not panic on the closed channel.
	unsubscribe()

	// Late subscribers get a closed channel.
	late, _ := b.Subscribe(schemas.EventTourStarted)
	_, open = <-late
	assert.False(t, open)

	b.Shutdown() // second shutdown is a no-op
}
