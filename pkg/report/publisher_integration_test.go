//go:build integration

package report

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start Redis container")

	endpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err, "get Redis endpoint")

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())

	t.Cleanup(func() {
		client.Close()
		redisContainer.Terminate(context.Background())
	})

	return client
}

func TestPublisher_Integration_PublishAndLatest(t *testing.T) {
	client := setupRedis(t)
	p := NewPublisher(client, time.Hour)
	ctx := context.Background()

	s := Summary{
		OwnerID:     -218375169,
		TargetWord:  "энвилоуп",
		Occurrences: 12,
		Posts:       300,
		Comments:    4200,
		Duration:    90 * time.Second,
		FinishedAt:  time.Now().UTC().Truncate(time.Second),
	}

	_, err := p.Latest(ctx, s.Key())
	assert.ErrorIs(t, err, ErrNoSummary)

	require.NoError(t, p.Publish(ctx, s))

	got, err := p.Latest(ctx, s.Key())
	require.NoError(t, err)
	assert.Equal(t, s.Occurrences, got.Occurrences)
	assert.Equal(t, s.Comments, got.Comments)
	assert.True(t, s.FinishedAt.Equal(got.FinishedAt))

	ttl, err := client.TTL(ctx, s.Key().String()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestPublisher_Integration_AnnouncesOnChannel(t *testing.T) {
	client := setupRedis(t)
	p := NewPublisher(client, 0)
	ctx := context.Background()

	sub := client.Subscribe(ctx, Channel())
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err, "subscription confirmation")

	s := Summary{OwnerID: 1, TargetWord: "word", Occurrences: 3}
	require.NoError(t, p.Publish(ctx, s))

	select {
	case msg := <-sub.Channel():
		var got Summary
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, 3, got.Occurrences)
	case <-time.After(5 * time.Second):
		t.Fatal("summary was not announced")
	}
}

func TestPublisher_Integration_OverwritesLatest(t *testing.T) {
	client := setupRedis(t)
	p := NewPublisher(client, 0)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, Summary{OwnerID: 1, TargetWord: "word", Occurrences: 1}))
	require.NoError(t, p.Publish(ctx, Summary{OwnerID: 1, TargetWord: "WORD", Occurrences: 2}))

	got, err := p.Latest(ctx, SummaryKey{OwnerID: 1, TargetWord: "Word"})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Occurrences)
}
