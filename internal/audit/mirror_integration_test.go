//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"custodia/internal/audit"
	"custodia/internal/platform/kafka"
	"custodia/pkg/testutil/containers"
)

func TestKafkaMirrorPublishesCommittedEntries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := containers.GetManager().GetRedpanda(t)
	const topic = "custodia.audit.test"

	producer, err := kafka.NewProducer(ctx, broker.Brokers, topic)
	require.NoError(t, err)
	defer producer.Close()

	mirror := audit.NewKafkaMirror(producer, nil, 16)
	mirrorCtx, stopMirror := context.WithCancel(ctx)
	defer stopMirror()
	go func() { _ = mirror.Run(mirrorCtx) }()

	store := audit.NewMemory()
	recorder := audit.NewRecorder(store, audit.WithMirror(mirror))

	caseID := int64(42)
	officerID := int64(7)
	require.NoError(t, recorder.Record(ctx, audit.Entry{
		OfficerID:    &officerID,
		ActionType:   audit.ActionCaseCreated,
		ResourceType: "case",
		ResourceID:   "42",
		CaseID:       &caseID,
		Detail:       map[string]any{"case_number": "CASE-20260301-MIRROR"},
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, fetches.Err())

		for _, record := range fetches.Records() {
			var payload map[string]any
			require.NoError(t, json.Unmarshal(record.Value, &payload))
			if payload["action_type"] == string(audit.ActionCaseCreated) {
				require.Equal(t, "42", string(record.Key), "mirror records must be keyed by case")
				require.Equal(t, "CASE-20260301-MIRROR", payload["detail"].(map[string]any)["case_number"])
				return
			}
		}
	}
	t.Fatal("mirrored audit entry never arrived on the topic")
}
