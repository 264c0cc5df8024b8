package amqp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEventMessageRoundTrip(t *testing.T) {
	msg := NewRecordEventMessage(EventExpenseCreated, 42, 3, 2024)

	data, err := msg.ToJSON()
	require.NoError(t, err)

	decoded, err := RecordEventMessageFromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, EventExpenseCreated, decoded.Event)
	assert.Equal(t, int64(42), decoded.ID)
	assert.Equal(t, 3, decoded.Month)
	assert.Equal(t, 2024, decoded.Year)
	assert.WithinDuration(t, time.Now(), decoded.Timestamp, time.Minute)
}

func TestDuplicationEventMessageRoundTrip(t *testing.T) {
	msg := NewDuplicationEventMessage(12, 2024, 1, 2025, 7)

	data, err := msg.ToJSON()
	require.NoError(t, err)

	decoded, err := DuplicationEventMessageFromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, 12, decoded.SourceMonth)
	assert.Equal(t, 2024, decoded.SourceYear)
	assert.Equal(t, 1, decoded.TargetMonth)
	assert.Equal(t, 2025, decoded.TargetYear)
	assert.Equal(t, 7, decoded.Count)
}

func TestRecordEventMessageFromJSONRejectsGarbage(t *testing.T) {
	_, err := RecordEventMessageFromJSON([]byte("not json"))
	assert.Error(t, err)
}

func TestNilClientPublishesAreNoOps(t *testing.T) {
	var c *Client

	ctx := context.Background()
	assert.NoError(t, c.PublishRecordEvent(ctx, NewRecordEventMessage(EventIncomeCreated, 1, 1, 2025)))
	assert.NoError(t, c.PublishDuplicationEvent(ctx, NewDuplicationEventMessage(1, 2025, 2, 2025, 0)))
	c.Close()
}
