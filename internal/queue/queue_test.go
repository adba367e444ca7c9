package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	evt := ClassEvent{ClassID: "class-1", ClassName: "Class 1", CurriculumCourseID: "cc-1"}
	msg, err := NewMessage(TypeClassStarted, evt)
	require.NoError(t, err)
	assert.Equal(t, TypeClassStarted, msg.Type)

	var got ClassEvent
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, evt, got)
}

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg, err := NewMessage(TypeAttendanceRecorded, AttendanceEvent{AttendanceID: "att-1", Action: "clock_in"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	out, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case got := <-out:
		assert.Equal(t, TypeAttendanceRecorded, got.Type)
		var evt AttendanceEvent
		require.NoError(t, json.Unmarshal(got.Body, &evt))
		assert.Equal(t, "att-1", evt.AttendanceID)
	case <-time.After(time.Second):
		t.Fatal("no message within a second")
	}
}

func TestInMemoryPublishHonorsCancel(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, q.Publish(ctx, Message{Type: "x"}))
	cancel()

	err := q.Publish(ctx, Message{Type: "y"})
	assert.ErrorIs(t, err, context.Canceled)
}
