package messaging

import (
	"context"
	"testing"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDisabledClient() *NATSClient {
	return NewNATSClient(&config.NATSConfig{SubjectPrefix: "ensgraph", QueueGroup: "ensgraph"}, logger.NewNop())
}

func TestSubjects(t *testing.T) {
	client := newDisabledClient()
	assert.Equal(t, "ensgraph.edges.created", client.EdgeSubject(entity.EdgeCreated))
	assert.Equal(t, "ensgraph.edges.deleted", client.EdgeSubject(entity.EdgeDeleted))
	assert.Equal(t, "ensgraph.activity.invalidate", client.InvalidationSubject())
}

func TestDisabledClientIsNoop(t *testing.T) {
	ctx := context.Background()
	client := newDisabledClient()

	require.NoError(t, client.Connect(ctx))
	assert.False(t, client.IsConnected())
	assert.NoError(t, client.PublishEdgeEvent(ctx, entity.EdgeEvent{Type: entity.EdgeCreated}))
	assert.NoError(t, client.PublishInvalidation(ctx, "0xabc"))
	assert.NoError(t, client.SubscribeInvalidations(ctx, func(context.Context, string) error { return nil }))
	assert.NoError(t, client.Disconnect())
}

func TestDisconnectReportsUnsubscribeError(t *testing.T) {
	client := newDisabledClient()
	client.sub = &nats.Subscription{}

	err := client.Disconnect()
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	assert.Nil(t, client.sub)
	assert.NoError(t, client.Disconnect())
}

func TestHandleInvalidation(t *testing.T) {
	client := newDisabledClient()
	var got []string
	handler := func(_ context.Context, address string) error {
		got = append(got, address)
		return nil
	}

	client.handleInvalidation(context.Background(), &nats.Msg{Data: []byte(`{"address":"0xabc"}`)}, handler)
	client.handleInvalidation(context.Background(), &nats.Msg{Data: []byte(`not json`)}, handler)
	client.handleInvalidation(context.Background(), &nats.Msg{Data: []byte(`{}`)}, handler)

	assert.Equal(t, []string{"0xabc"}, got)
}
