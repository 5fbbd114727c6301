package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credicuenta/debt-ledger/internal/domain"
)

func testSummary(associateID uuid.UUID) *domain.DebtSummary {
	return &domain.DebtSummary{
		AssociateID:      associateID,
		TotalDebt:        decimal.RequireFromString("1300.00"),
		InAgreementDebt:  decimal.Zero,
		PendingItems:     2,
		LiquidatedItems:  1,
		TotalPaidDebt:    decimal.RequireFromString("700.00"),
		ActiveAgreements: 0,
	}
}

func TestRedisDebtCache_GetSummary(t *testing.T) {
	associateID := uuid.New()
	summary := testSummary(associateID)
	raw, err := json.Marshal(summary)
	require.NoError(t, err)

	tests := []struct {
		name    string
		setup   func(mock redismock.ClientMock)
		want    *domain.DebtSummary
		wantErr bool
	}{
		{
			name: "hit",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet(SummaryKey(associateID, 2)).SetVal(string(raw))
			},
			want: summary,
		},
		{
			name: "miss",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet(SummaryKey(associateID, 2)).RedisNil()
			},
		},
		{
			name: "redis down",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet(SummaryKey(associateID, 2)).SetErr(errors.New("connection refused"))
			},
			wantErr: true,
		},
		{
			name: "corrupt payload",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet(SummaryKey(associateID, 2)).SetVal("{not json")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			tt.setup(mock)

			c := NewRedisDebtCache(client, time.Minute)
			got, err := c.GetSummary(context.Background(), associateID, 2)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				if tt.want == nil {
					assert.Nil(t, got)
				} else {
					require.NotNil(t, got)
					assert.True(t, tt.want.TotalDebt.Equal(got.TotalDebt))
					assert.True(t, tt.want.TotalPaidDebt.Equal(got.TotalPaidDebt))
					assert.Equal(t, tt.want.PendingItems, got.PendingItems)
					assert.Equal(t, tt.want.LiquidatedItems, got.LiquidatedItems)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRedisDebtCache_SetSummary(t *testing.T) {
	associateID := uuid.New()
	summary := testSummary(associateID)
	raw, err := json.Marshal(summary)
	require.NoError(t, err)

	client, mock := redismock.NewClientMock()
	mock.ExpectSet(SummaryKey(associateID, 7), raw, 30*time.Second).SetVal("OK")

	c := NewRedisDebtCache(client, 30*time.Second)
	require.NoError(t, c.SetSummary(context.Background(), summary, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisDebtCache_Generation(t *testing.T) {
	associateID := uuid.New()

	client, mock := redismock.NewClientMock()
	mock.ExpectGet(GenerationKey(associateID)).RedisNil()
	mock.ExpectGet(GenerationKey(associateID)).SetVal("12")
	mock.ExpectGet(GenerationKey(associateID)).SetErr(errors.New("connection refused"))

	c := NewRedisDebtCache(client, time.Minute)
	generation, err := c.Generation(context.Background(), associateID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), generation)

	generation, err = c.Generation(context.Background(), associateID)
	require.NoError(t, err)
	assert.Equal(t, int64(12), generation)

	_, err = c.Generation(context.Background(), associateID)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisDebtCache_Invalidate(t *testing.T) {
	associateID := uuid.New()

	client, mock := redismock.NewClientMock()
	mock.ExpectIncr(GenerationKey(associateID)).SetVal(1)
	mock.ExpectIncr(GenerationKey(associateID)).SetErr(errors.New("timeout"))

	c := NewRedisDebtCache(client, time.Minute)
	assert.NoError(t, c.Invalidate(context.Background(), associateID))
	assert.Error(t, c.Invalidate(context.Background(), associateID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A summary computed before a write and stored after the write's
// invalidation lands under the old generation and is never read back.
func TestRedisDebtCache_StaleFillIsUnreachable(t *testing.T) {
	associateID := uuid.New()
	stale := testSummary(associateID)
	raw, err := json.Marshal(stale)
	require.NoError(t, err)

	client, mock := redismock.NewClientMock()
	mock.MatchExpectationsInOrder(true)
	mock.ExpectGet(GenerationKey(associateID)).SetVal("5")
	mock.ExpectIncr(GenerationKey(associateID)).SetVal(6)
	mock.ExpectSet(SummaryKey(associateID, 5), raw, time.Minute).SetVal("OK")
	mock.ExpectGet(GenerationKey(associateID)).SetVal("6")
	mock.ExpectGet(SummaryKey(associateID, 6)).RedisNil()

	c := NewRedisDebtCache(client, time.Minute)
	ctx := context.Background()

	generation, err := c.Generation(ctx, associateID)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, associateID))
	require.NoError(t, c.SetSummary(ctx, stale, generation))

	current, err := c.Generation(ctx, associateID)
	require.NoError(t, err)
	got, err := c.GetSummary(ctx, associateID, current)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryKey(t *testing.T) {
	id := uuid.MustParse("7b1c2a9e-0000-4000-8000-000000000001")
	assert.Equal(t, "debt:summary:7b1c2a9e-0000-4000-8000-000000000001:3", SummaryKey(id, 3))
	assert.Equal(t, "debt:summary:gen:7b1c2a9e-0000-4000-8000-000000000001", GenerationKey(id))
}
