package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

func TestBroadcaster_Subscribe(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("s1")
	require.NotNil(t, sub)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "s1", sub.SessionID)
	assert.Equal(t, 1, b.SubscriberCount())
}

func TestBroadcaster_ProgressFiltersBySession(t *testing.T) {
	b := New()
	defer b.Close()

	mine := b.Subscribe("s1")
	all := b.Subscribe("")

	b.Progress("s2", types.Progress{Kind: types.ProgressRecords, Records: 1000})

	select {
	case <-mine.Events:
		t.Fatal("should not receive another session's events")
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case ev := <-all.Events:
		assert.Equal(t, EventProgress, ev.Type)
		assert.Equal(t, "s2", ev.SessionID)
		assert.Equal(t, int64(1000), ev.Progress.Records)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected event not received")
	}
}

func TestBroadcaster_ProgressDropsWhenFull(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("")
	for i := 0; i < DefaultBufferSize+10; i++ {
		b.Progress("s", types.Progress{Records: int64(i)})
	}
	assert.Len(t, sub.Events, DefaultBufferSize)
}

func TestBroadcaster_CompletedNeverDropped(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("")
	for i := 0; i < DefaultBufferSize; i++ {
		b.Progress("s", types.Progress{Records: int64(i)})
	}

	b.Completed(types.Outcome{SessionID: "s", State: types.StateCompleted, SnapshotPath: "x.db"})

	var last *Event
	for len(sub.Events) > 0 {
		last = <-sub.Events
	}
	require.NotNil(t, last)
	assert.Equal(t, EventCompleted, last.Type)
	assert.Equal(t, "x.db", last.Outcome.SnapshotPath)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("")
	b.Unsubscribe(sub.ID)

	_, ok := <-sub.Events
	assert.False(t, ok, "channel should be closed after unsubscribe")
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBroadcaster_Closed(t *testing.T) {
	b := New()
	sub := b.Subscribe("")
	b.Close()

	_, ok := <-sub.Events
	assert.False(t, ok)
	assert.Nil(t, b.Subscribe(""))

	b.Progress("s", types.Progress{})
	b.Completed(types.Outcome{SessionID: "s"})
}
