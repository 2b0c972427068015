package rewards_test

import (
	"testing"
	"time"

	"koffieblik-backend/internal/rewards"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_OrdersByCompletedCountDesc(t *testing.T) {
	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	standings := []rewards.Standing{
		{UserID: 1, CompletedOrders: 3, AccountCreatedAt: created},
		{UserID: 2, CompletedOrders: 10, AccountCreatedAt: created},
		{UserID: 3, CompletedOrders: 7, AccountCreatedAt: created},
	}

	ranked := rewards.Rank(standings)
	require.Len(t, ranked, 3)
	assert.Equal(t, uint(2), ranked[0].UserID)
	assert.Equal(t, uint(3), ranked[1].UserID)
	assert.Equal(t, uint(1), ranked[2].UserID)
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})
}

func TestRank_TieBrokenByEarlierAccount(t *testing.T) {
	older := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	standings := []rewards.Standing{
		{UserID: 1, CompletedOrders: 5, AccountCreatedAt: newer},
		{UserID: 2, CompletedOrders: 5, AccountCreatedAt: older},
	}

	ranked := rewards.Rank(standings)
	assert.Equal(t, uint(2), ranked[0].UserID) // eski hesap önde
	assert.Equal(t, uint(1), ranked[1].UserID)
}

func TestRank_DeterministicAcrossRecomputation(t *testing.T) {
	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	standings := []rewards.Standing{
		{UserID: 5, CompletedOrders: 4, AccountCreatedAt: created},
		{UserID: 3, CompletedOrders: 4, AccountCreatedAt: created},
		{UserID: 8, CompletedOrders: 4, AccountCreatedAt: created},
	}

	first := rewards.Rank(standings)
	second := rewards.Rank(standings)
	require.Equal(t, first, second)

	// Tam eşitlikte son kırıcı user id: sıra her hesaplamada aynı
	assert.Equal(t, uint(3), first[0].UserID)
	assert.Equal(t, uint(5), first[1].UserID)
	assert.Equal(t, uint(8), first[2].UserID)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	standings := []rewards.Standing{
		{UserID: 1, CompletedOrders: 1, AccountCreatedAt: created},
		{UserID: 2, CompletedOrders: 9, AccountCreatedAt: created},
	}

	_ = rewards.Rank(standings)
	assert.Equal(t, uint(1), standings[0].UserID)
	assert.Zero(t, standings[0].Rank)
}
