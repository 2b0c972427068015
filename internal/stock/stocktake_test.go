package stock_test

import (
	"testing"

	"koffieblik-backend/internal/apperr"
	"koffieblik-backend/internal/models"
	"koffieblik-backend/internal/stock"
	"koffieblik-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockTake_SingleActiveInstance(t *testing.T) {
	db := testutil.NewDB(t)
	actor := testutil.CreateUser(t, db, models.RoleBarista)

	st, err := stock.StartStockTake(db, actor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StockTakeInProgress, st.Status)

	// İkinci start DB'deki partial unique index'e takılır
	_, err = stock.StartStockTake(db, actor.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestStockTake_CompleteResolvesActiveWithoutID(t *testing.T) {
	db := testutil.NewDB(t)
	actor := testutil.CreateUser(t, db, models.RoleBarista)

	started, err := stock.StartStockTake(db, actor.ID)
	require.NoError(t, err)

	completed, err := stock.CompleteStockTake(db, nil, actor.ID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, completed.ID)
	assert.Equal(t, models.StockTakeCompleted, completed.Status)
	require.NotNil(t, completed.CompletedBy)
	assert.Equal(t, actor.ID, *completed.CompletedBy)
}

func TestStockTake_CompleteWithoutActive(t *testing.T) {
	db := testutil.NewDB(t)
	actor := testutil.CreateUser(t, db, models.RoleBarista)

	_, err := stock.CompleteStockTake(db, nil, actor.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestStockTake_CompletedIsTerminal(t *testing.T) {
	db := testutil.NewDB(t)
	actor := testutil.CreateUser(t, db, models.RoleBarista)

	st, err := stock.StartStockTake(db, actor.ID)
	require.NoError(t, err)

	_, err = stock.CompleteStockTake(db, &st.ID, actor.ID)
	require.NoError(t, err)

	// Tamamlanmış sayım yeniden kapatılamaz
	_, err = stock.CompleteStockTake(db, &st.ID, actor.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	// Tamamlandıktan sonra yeni sayım başlatılabilir
	_, err = stock.StartStockTake(db, actor.ID)
	require.NoError(t, err)
}
