package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/testutil"
)

func TestMultiHandlerFansOut(t *testing.T) {
	var info, errs bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h).With("bank_id", "b1")

	logger.Info("delivery scheduled", "created", 3)
	logger.Error("redeem failed", "error", "boom")

	assert.Contains(t, info.String(), "delivery scheduled")
	assert.Contains(t, info.String(), "redeem failed")
	assert.NotContains(t, errs.String(), "delivery scheduled")
	assert.Contains(t, errs.String(), "bank_id=b1")
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestPGHandlerPersistsErrors(t *testing.T) {
	db := testutil.NewDB(t)
	h := NewPGHandler(db, time.Hour)
	logger := slog.New(h).With("bank_id", "b1", "user_id", "u-1")

	logger.Info("ignored")
	logger.Error("redeem failed",
		"action", "redeem",
		"error", errors.New("store unavailable"),
		"latency_ms", 12.4,
		"delivery_id", "d-1",
	)
	h.Stop()

	var logs []models.SystemLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, "redeem failed", entry.Message)
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "b1", entry.BankID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u-1", *entry.UserID)
	assert.Equal(t, "redeem", entry.Action)
	assert.Equal(t, "store unavailable", entry.Error)
	assert.Equal(t, 12, entry.LatencyMs)
	assert.JSONEq(t, `{"delivery_id":"d-1"}`, string(entry.Extra))
}

func TestPurgeOlderThan(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	require.NoError(t, db.Create(&[]models.SystemLog{
		{Timestamp: now.AddDate(0, 0, -40), Level: "ERROR", Message: "old"},
		{Timestamp: now, Level: "ERROR", Message: "new"},
	}).Error)

	deleted := PurgeOlderThan(db, now.AddDate(0, 0, -30))
	assert.Equal(t, int64(1), deleted)

	var remaining []models.SystemLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].Message)
}
