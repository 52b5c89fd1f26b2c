package store

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *SenderStore {
	t.Helper()
	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE senders (
			id TEXT PRIMARY KEY,
			last_message TEXT NOT NULL DEFAULT '',
			last_service TEXT,
			last_interaction TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	require.NoError(t, err)

	return NewSenderStore(db)
}

func TestRecordMessageUpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordMessage(ctx, "447900000001", "hello", base))
	require.NoError(t, s.RecordMessage(ctx, "447900000001", "hello", base.Add(time.Minute)))

	senders, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, senders, 1)
	require.Equal(t, "447900000001", senders[0].ID)
	require.Equal(t, "hello", senders[0].LastMessage)
	require.Nil(t, senders[0].LastService)
	require.True(t, senders[0].LastInteraction.Equal(base.Add(time.Minute)),
		"last_interaction = %v, want %v", senders[0].LastInteraction, base.Add(time.Minute))
}

func TestRecordMessageLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordMessage(ctx, "a", "first", base))
	require.NoError(t, s.RecordMessage(ctx, "a", "second", base.Add(time.Second)))

	senders, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, senders, 1)
	require.Equal(t, "second", senders[0].LastMessage)
}

func TestRecordServiceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordMessage(ctx, "447900000002", "id like option 2 please", base))
	require.NoError(t, s.RecordService(ctx, "447900000002", "PC Repairs & Diagnostics", base))

	senders, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, senders, 1)
	require.Equal(t, "id like option 2 please", senders[0].LastMessage)
	require.NotNil(t, senders[0].LastService)
	require.Equal(t, "PC Repairs & Diagnostics", *senders[0].LastService)
}

func TestRecordServiceUnknownSender(t *testing.T) {
	s := newTestStore(t)
	err := s.RecordService(context.Background(), "ghost", "Hardware Upgrades", time.Now())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnknownSender)
	require.True(t, IsStoreError(err))
}

func TestListAllOrdersByRecency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordMessage(ctx, "old", "hi", base))
	require.NoError(t, s.RecordMessage(ctx, "new", "hi", base.Add(time.Hour)))
	require.NoError(t, s.RecordMessage(ctx, "mid", "hi", base.Add(time.Minute)))

	senders, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, senders, 3)
	require.Equal(t, "new", senders[0].ID)
	require.Equal(t, "mid", senders[1].ID)
	require.Equal(t, "old", senders[2].ID)
}

func TestListAllEmptyStore(t *testing.T) {
	s := newTestStore(t)
	senders, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, senders)
	require.Empty(t, senders)
}

func TestConcurrentUpsertsSameSender(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func(n int) {
			done <- s.RecordMessage(ctx, "racer", "msg", base.Add(time.Duration(n)*time.Millisecond))
		}(i)
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, <-done)
	}

	senders, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, senders, 1)
}
