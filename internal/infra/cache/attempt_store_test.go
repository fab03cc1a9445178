package cache

import (
	"context"
	"testing"
	"time"

	"foodcart/internal/domain/model"
	"foodcart/internal/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisAttemptStore_FirstVerdictWins(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := NewRedisAttemptStore(client, time.Hour)
	ctx := context.Background()

	state, err := s.Get(ctx, "order_1|pay_1")
	require.NoError(t, err)
	assert.Equal(t, payment.AttemptNone, state)

	stored, err := s.Record(ctx, "order_1|pay_1", payment.AttemptRejected)
	require.NoError(t, err)
	assert.Equal(t, payment.AttemptRejected, stored)

	stored, err = s.Record(ctx, "order_1|pay_1", payment.AttemptVerified)
	require.NoError(t, err)
	assert.Equal(t, payment.AttemptRejected, stored)

	assert.Equal(t, time.Hour, mr.TTL("settlement:order_1|pay_1"))
}

func TestRedisIntentStore_PutGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := NewRedisIntentStore(client, 30*time.Minute)
	ctx := context.Background()

	_, err := s.Get(ctx, "order_1")
	assert.ErrorIs(t, err, payment.ErrUnknownIntent)

	rec := payment.IntentRecord{
		IntentID: "order_1", UserID: 7, CartID: "cart-7", CartVersion: 3,
		Amount: decimal.RequireFromString("180.50"), Currency: "INR",
	}
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "cart-7", got.CartID)
	assert.Equal(t, int64(3), got.CartVersion)
	assert.True(t, rec.Amount.Equal(got.Amount))
	assert.Equal(t, 30*time.Minute, mr.TTL("intent:order_1"))

	mr.FastForward(31 * time.Minute)
	_, err = s.Get(ctx, "order_1")
	assert.ErrorIs(t, err, payment.ErrUnknownIntent)
}

func TestRedisStores_BackVerifier(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	secret := []byte("secret")
	gw := payment.NewSandboxGateway(secret)
	v, err := payment.NewVerifier(secret, gw,
		NewRedisAttemptStore(client, time.Hour),
		NewRedisIntentStore(client, time.Hour),
	)
	require.NoError(t, err)

	checkout := payment.Checkout{UserID: 1, CartID: "cart-1", CartVersion: 2, Amount: decimal.NewFromInt(120)}
	first, err := v.CreateIntent(ctx, checkout)
	require.NoError(t, err)
	paid, err := gw.Settle(first.ID)
	require.NoError(t, err)

	bad := paymentSettlement(paid.IntentID, paid.SettlementID, payment.Sign([]byte("wrong"), paid.IntentID, paid.SettlementID))
	_, err = v.VerifySettlement(ctx, 1, bad)
	require.ErrorIs(t, err, payment.ErrInvalidSignature)

	// rejected first, so the real signature is refused too
	_, err = v.VerifySettlement(ctx, 1, paid)
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)

	second, err := v.CreateIntent(ctx, checkout)
	require.NoError(t, err)
	paid, err = gw.Settle(second.ID)
	require.NoError(t, err)

	proof, err := v.VerifySettlement(ctx, 1, paid)
	require.NoError(t, err)
	assert.Equal(t, "cart-1", proof.CartID())
	assert.Equal(t, int64(2), proof.CartVersion())
	assert.True(t, decimal.NewFromInt(120).Equal(proof.Amount()))
}

func paymentSettlement(intentID, settlementID, sig string) model.Settlement {
	return model.Settlement{IntentID: intentID, SettlementID: settlementID, Signature: sig}
}
