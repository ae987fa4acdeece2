package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cashdesk/internal/domain"
)

type recordingConn struct {
	msgs       []*nats.Msg
	publishErr error
	flushes    int
}

func (c *recordingConn) PublishMsg(msg *nats.Msg) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recordingConn) FlushWithContext(ctx context.Context) error {
	c.flushes++
	return nil
}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &recordingConn{}
	pub := NewNATSPublisher(conn, "cashdesk.events")
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	err := pub.Publish(context.Background(), &domain.OutboxEvent{
		ID:            "evt-1",
		AggregateType: domain.AggregateTypeLedger,
		AggregateID:   "L-1",
		EventType:     domain.EventTypeCashIn,
		Payload:       map[string]any{"amount": "5000"},
		CreatedAt:     created,
	})
	require.NoError(t, err)

	require.Len(t, conn.msgs, 1)
	msg := conn.msgs[0]
	assert.Equal(t, "cashdesk.events.cash.in", msg.Subject)
	assert.Equal(t, "evt-1", msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, 1, conn.flushes)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, "L-1", env.AggregateID)
	assert.Equal(t, "5000", env.Payload["amount"])
	assert.True(t, env.OccurredAt.Equal(created))
}

func TestNATSPublisher_PublishError(t *testing.T) {
	conn := &recordingConn{publishErr: nats.ErrConnectionClosed}
	pub := NewNATSPublisher(conn, "cashdesk.events")

	err := pub.Publish(context.Background(), &domain.OutboxEvent{ID: "evt-2", EventType: domain.EventTypeCashOut})

	assert.True(t, errors.Is(err, nats.ErrConnectionClosed))
	assert.Zero(t, conn.flushes)
}
