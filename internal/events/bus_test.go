package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestEventBus_Subscribe(t *testing.T) {
	bus := New(10)
	defer bus.Close()
	ch := bus.Subscribe()

	bus.Publish(NewObservationRecordedEvent("ses-1", "obs-1", "session.idle", "", ""))

	e := receive(t, ch)
	assert.Equal(t, TypeObservationRecorded, e.EventType())
	assert.Equal(t, "ses-1", e.SessionID())
	assert.False(t, e.Timestamp().IsZero())
}

func TestEventBus_TypeFilter(t *testing.T) {
	bus := New(10)
	defer bus.Close()
	nudges := bus.Subscribe(TypeNudgeFired)
	all := bus.Subscribe()

	bus.Publish(NewObservationRecordedEvent("ses-1", "obs-1", "tool.execute.after", "bash", ""))
	bus.Publish(NewNudgeFiredEvent("ses-1", "bash", "go test ./...", true))

	assert.Len(t, drain(all), 2)
	got := drain(nudges)
	require.Len(t, got, 1)
	assert.Equal(t, "go test ./...", got[0].(NudgeFiredEvent).Signature)
}

func TestEventBus_SessionFilter(t *testing.T) {
	bus := New(10)
	defer bus.Close()
	chA := bus.SubscribeForSession("ses-a")
	chB := bus.SubscribeForSession("ses-b", TypeNudgeFired)
	chAll := bus.SubscribeForSession("")

	bus.Publish(NewNudgeFiredEvent("ses-a", "bash", "", false))
	bus.Publish(NewNudgeFiredEvent("ses-b", "bash", "", false))
	bus.Publish(NewObservationRecordedEvent("ses-b", "obs-1", "tool.execute.after", "bash", ""))

	for _, e := range drain(chA) {
		assert.Equal(t, "ses-a", e.SessionID())
	}
	assert.Len(t, drain(chB), 1)
	assert.Len(t, drain(chAll), 3)
}

func TestEventBus_SlowSubscriberLosesOldest(t *testing.T) {
	bus := New(5)
	defer bus.Close()
	ch := bus.Subscribe()

	for i := 0; i < 10; i++ {
		bus.Publish(NewObservationRecordedEvent("ses-1", fmt.Sprint(i), "tool.execute.before", "read", ""))
	}

	assert.EqualValues(t, 5, bus.DroppedCount())
	got := drain(ch)
	require.Len(t, got, 5)
	for i, e := range got {
		assert.Equal(t, fmt.Sprint(i+5), e.(ObservationRecordedEvent).ObservationID)
	}
}

func TestEventBus_ConcurrentPublishAccountsForEveryEvent(t *testing.T) {
	bus := New(100)
	defer bus.Close()
	ch := bus.Subscribe()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(NewNudgeFiredEvent(fmt.Sprintf("ses-%d", id), "bash", "make", false))
			}
		}(i)
	}
	wg.Wait()

	received := len(drain(ch))
	assert.Positive(t, received)
	assert.EqualValues(t, 1000, int64(received)+bus.DroppedCount())
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := New(10)
	defer bus.Close()
	ch := bus.Subscribe()
	other := bus.Subscribe()

	bus.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok, "unsubscribed channel is closed")

	bus.Publish(NewNudgeFiredEvent("ses-1", "bash", "", true))
	assert.Len(t, drain(other), 1)

	bus.Unsubscribe(make(chan Event))
}

func TestEventBus_Closed(t *testing.T) {
	bus := New(0)
	live := bus.Subscribe()
	bus.Close()

	_, ok := <-live
	assert.False(t, ok)

	_, ok = <-bus.SubscribeForSession("ses-a")
	assert.False(t, ok, "subscribing to a closed bus yields a closed channel")

	bus.Publish(NewNudgeFiredEvent("ses-a", "bash", "", false))
	bus.Close()
}

func TestEventJSONShape(t *testing.T) {
	code := 2
	data, err := json.Marshal(NewAutolearnFinishedEvent("ses-1", "failure", "apply_failed", false, &code))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, TypeAutolearnFinished, m["type"])
	assert.Equal(t, "ses-1", m["session_id"])
	assert.Equal(t, "failure", m["state"])
	assert.Equal(t, "apply_failed", m["reason"])
	assert.Equal(t, false, m["applied"])
	assert.Equal(t, float64(2), m["exit_code"])
	assert.Contains(t, m, "timestamp")
}
