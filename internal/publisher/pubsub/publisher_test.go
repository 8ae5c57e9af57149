package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/oews-ingest/internal/store"
)

func TestNewMessageCarriesRun(t *testing.T) {
	t.Parallel()

	run := store.Run{
		ID:        uuid.MustParse("0190aa37-7a3c-7cc1-9db4-1f2f1b7a9e01"),
		Kind:      "crawl",
		Status:    store.RunSuccess,
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Requested: 120,
		Found:     17,
		Batches:   3,
	}
	msg, err := newMessage(run)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"run_id": "0190aa37-7a3c-7cc1-9db4-1f2f1b7a9e01",
		"kind":   "crawl",
		"status": "success",
	}, msg.Attributes)

	var back store.Run
	require.NoError(t, json.Unmarshal(msg.Data, &back))
	require.Equal(t, run.ID, back.ID)
	require.EqualValues(t, 17, back.Found)
}

func TestPublishWithoutTopic(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), store.Run{})
	require.Error(t, err)
	New(nil).Stop()
}
