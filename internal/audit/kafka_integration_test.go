//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"pa-gateway/internal/audit"
	"pa-gateway/pkg/testutil/containers"
)

func TestKafkaPublisher_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	broker := containers.NewRedpandaContainer(t).Broker
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	publisher, err := audit.NewKafkaPublisher(ctx, []string{broker}, "verification-audit")
	require.NoError(t, err)
	defer publisher.Close()

	event := audit.Event{
		VerificationID: "v-123",
		IssuingCountry: "UT",
		DocumentNumber: "X1234567",
		Status:         "SUCCESS",
	}
	require.NoError(t, publisher.Publish(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics("verification-audit"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)

	require.Equal(t, []byte("v-123"), records[0].Key)

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, "v-123", got.VerificationID)
	require.Equal(t, "SUCCESS", got.Status)
	require.NotEmpty(t, got.ID, "publisher stamps the event id")
	require.False(t, got.Timestamp.IsZero())
}

func TestKafkaPublisher_RequiresBrokersAndTopic(t *testing.T) {
	ctx := context.Background()

	_, err := audit.NewKafkaPublisher(ctx, nil, "verification-audit")
	require.Error(t, err)

	_, err = audit.NewKafkaPublisher(ctx, []string{"localhost:9092"}, "")
	require.Error(t, err)
}
