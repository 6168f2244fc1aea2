package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(id string, stock *int32, available bool) database.StoreProduct {
	p := database.StoreProduct{ID: uuid.MustParse(id), IsAvailable: available}
	if stock != nil {
		p.Stock = pgtype.Int4{Int32: *stock, Valid: true}
	}
	return p
}

func TestPickStoreProduct(t *testing.T) {
	const (
		low  = "00000000-0000-0000-0000-000000000001"
		mid  = "00000000-0000-0000-0000-000000000002"
		high = "00000000-0000-0000-0000-000000000003"
	)

	t.Run("most stock wins", func(t *testing.T) {
		got, ok := pickStoreProduct([]database.StoreProduct{
			row(low, ptr[int32](2), true),
			row(mid, ptr[int32](9), true),
			row(high, nil, true),
		})
		require.True(t, ok)
		assert.Equal(t, mid, got.ID.String())
	})

	t.Run("tie goes to lowest id", func(t *testing.T) {
		got, ok := pickStoreProduct([]database.StoreProduct{
			row(high, ptr[int32](4), true),
			row(low, ptr[int32](4), true),
			row(mid, ptr[int32](4), true),
		})
		require.True(t, ok)
		assert.Equal(t, low, got.ID.String())
	})

	t.Run("null stock counts as zero", func(t *testing.T) {
		got, ok := pickStoreProduct([]database.StoreProduct{
			row(low, nil, true),
			row(high, ptr[int32](0), true),
		})
		require.True(t, ok)
		assert.Equal(t, low, got.ID.String())
	})

	t.Run("unavailable rows are ignored", func(t *testing.T) {
		got, ok := pickStoreProduct([]database.StoreProduct{
			row(low, ptr[int32](50), false),
			row(high, ptr[int32](1), true),
		})
		require.True(t, ok)
		assert.Equal(t, high, got.ID.String())

		_, ok = pickStoreProduct([]database.StoreProduct{row(low, ptr[int32](50), false)})
		assert.False(t, ok)
	})

	t.Run("unavailable row never wins a tie", func(t *testing.T) {
		got, ok := pickStoreProduct([]database.StoreProduct{
			row(low, ptr[int32](4), false),
			row(high, ptr[int32](4), true),
			row(mid, ptr[int32](4), true),
		})
		require.True(t, ok)
		assert.Equal(t, mid, got.ID.String())
	})
}

func resolve(fx *fixture, ref uuid.UUID) (database.StoreProduct, error) {
	var got database.StoreProduct
	err := fx.svc.inTx(context.Background(), func(store OrderStore) error {
		var err error
		got, err = ResolveStoreProduct(context.Background(), store, fx.store.ID, ref)
		return err
	})
	return got, err
}

func TestResolveStoreProduct_Duplicates(t *testing.T) {
	fx := newFixture(t)
	productID := uuid.New()
	fx.product(productID, "Es Teh", 500, ptr[int32](1))
	best := fx.product(productID, "Es Teh", 500, ptr[int32](12))

	got, err := resolve(fx, productID)
	require.NoError(t, err)
	assert.Equal(t, best.ID, got.ID)
}

func TestResolveStoreProduct_StaleStoreProductID(t *testing.T) {
	fx := newFixture(t)
	productID := uuid.New()
	stale := fx.product(productID, "Es Teh", 500, ptr[int32](1))
	best := fx.product(productID, "Es Teh", 500, ptr[int32](12))

	got, err := resolve(fx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, best.ID, got.ID, "a stale row id is re-resolved through its product")
}

func TestResolveStoreProduct_Unavailable(t *testing.T) {
	fx := newFixture(t)

	_, err := resolve(fx, uuid.New())
	assert.ErrorIs(t, err, ErrProductUnavailable)

	productID := uuid.New()
	p := fx.product(productID, "Kopi", 900, ptr[int32](5))
	p.IsAvailable = false
	fx.db.state.products[p.ID] = p

	_, err = resolve(fx, productID)
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestResolveStoreProduct_OtherStoreRowIsInvisible(t *testing.T) {
	fx := newFixture(t)
	productID := uuid.New()
	p := fx.product(productID, "Kopi", 900, ptr[int32](5))
	p.StoreID = uuid.New()
	fx.db.state.products[p.ID] = p

	_, err := resolve(fx, productID)
	assert.ErrorIs(t, err, ErrProductUnavailable)
}
