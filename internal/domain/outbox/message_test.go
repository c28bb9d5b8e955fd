package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	ref := uuid.New()
	entry := &ledger.Entry{
		ID:           uuid.New(),
		AccountID:    uuid.New(),
		Amount:       25,
		Category:     ledger.CategorySubmissionReward,
		RefID:        &ref,
		RefKind:      ledger.RefKindSubmission,
		BalanceAfter: 125,
		CreatedAt:    time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
	}

	msg, err := NewMessage(entry)
	require.NoError(t, err)

	assert.Equal(t, entry.ID, msg.EntryID)
	assert.Equal(t, entry.AccountID, msg.AccountID)
	assert.Equal(t, shared.OutboxStatusPending, msg.Status)
	assert.Equal(t, 0, msg.Attempts)
	assert.Nil(t, msg.LastAttemptAt)
	assert.Equal(t, entry.CreatedAt, msg.CreatedAt)

	var decoded ledger.Entry
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, entry.ID, decoded.ID)
	assert.Equal(t, int64(125), decoded.BalanceAfter)
	require.NotNil(t, decoded.RefID)
	assert.Equal(t, ref, *decoded.RefID)
}

func TestMessage_StatusTransitions(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	t.Run("IncrementAttempts", func(t *testing.T) {
		msg := &Message{Attempts: 1}
		msg.IncrementAttempts(now)
		assert.Equal(t, 2, msg.Attempts)
		require.NotNil(t, msg.LastAttemptAt)
		assert.Equal(t, now, *msg.LastAttemptAt)
	})

	t.Run("MarkAsProcessed", func(t *testing.T) {
		msg := &Message{Status: shared.OutboxStatusPending}
		msg.MarkAsProcessed(now)
		assert.Equal(t, shared.OutboxStatusProcessed, msg.Status)
		assert.Equal(t, now, *msg.LastAttemptAt)
	})

	t.Run("MarkAsFailed", func(t *testing.T) {
		msg := &Message{Status: shared.OutboxStatusPending}
		msg.MarkAsFailed(now)
		assert.Equal(t, shared.OutboxStatusFailedToPublish, msg.Status)
		assert.Equal(t, now, *msg.LastAttemptAt)
	})
}

func TestMessage_LedgerEntry(t *testing.T) {
	t.Run("ValidPayload", func(t *testing.T) {
		original := &ledger.Entry{
			ID:           uuid.New(),
			AccountID:    uuid.New(),
			Amount:       -30,
			Category:     ledger.CategoryPurchaseDebit,
			BalanceAfter: 70,
			CreatedAt:    time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
		}
		payload, err := json.Marshal(original)
		require.NoError(t, err)

		decoded, err := (&Message{Payload: payload}).LedgerEntry()
		require.NoError(t, err)
		assert.Equal(t, original.ID, decoded.ID)
		assert.Equal(t, original.Category, decoded.Category)
		assert.Equal(t, original.Amount, decoded.Amount)
		assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		_, err := (&Message{Payload: json.RawMessage(`{"amount":"x"}`)}).LedgerEntry()
		assert.Error(t, err)
	})
}
