package repo_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/dbtest"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/repo"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	return repo.New(dbtest.New(t))
}

func TestCart_AddIncrementsAndRefreshesSnapshot(t *testing.T) {
	t.Parallel()
	r := newRepo(t)
	ctx := context.Background()

	user, product := uuid.New(), uuid.New()
	first := &models.CartItem{UserID: user, ProductID: product, Quantity: 1, UnitPrice: dec("500"), GreenPointsPerUnit: 10, CO2SavedPerUnit: dec("1.2")}
	require.NoError(t, r.AddToCart(ctx, first))

	again := &models.CartItem{UserID: user, ProductID: product, Quantity: 2, UnitPrice: dec("450"), GreenPointsPerUnit: 12, CO2SavedPerUnit: dec("1.2")}
	require.NoError(t, r.AddToCart(ctx, again))

	lines, err := r.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.True(t, lines[0].UnitPrice.Equal(dec("450")))
	assert.Equal(t, 12, lines[0].GreenPointsPerUnit)
	assert.Equal(t, first.ID, again.ID)
}

func TestCart_AddStopsAtLineLimit(t *testing.T) {
	t.Parallel()
	r := newRepo(t)
	ctx := context.Background()
	user, product := uuid.New(), uuid.New()

	require.NoError(t, r.AddToCart(ctx, &models.CartItem{UserID: user, ProductID: product, Quantity: repo.MaxLineQuantity, UnitPrice: dec("5")}))

	err := r.AddToCart(ctx, &models.CartItem{UserID: user, ProductID: product, Quantity: 1, UnitPrice: dec("4")})
	assert.ErrorIs(t, err, repo.ErrQuantityLimit)
	assert.ErrorIs(t, r.AddToCart(ctx, &models.CartItem{UserID: uuid.New(), ProductID: product, Quantity: repo.MaxLineQuantity + 1}), repo.ErrQuantityLimit)

	lines, err := r.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, repo.MaxLineQuantity, lines[0].Quantity)
	assert.True(t, lines[0].UnitPrice.Equal(dec("5")))
}

func TestCart_UpdateRemoveClear(t *testing.T) {
	t.Parallel()
	r := newRepo(t)
	ctx := context.Background()

	user, other := uuid.New(), uuid.New()
	a := &models.CartItem{UserID: user, ProductID: uuid.New(), Quantity: 1, UnitPrice: dec("10")}
	b := &models.CartItem{UserID: user, ProductID: uuid.New(), Quantity: 1, UnitPrice: dec("20")}
	c := &models.CartItem{UserID: user, ProductID: uuid.New(), Quantity: 1, UnitPrice: dec("30")}
	foreign := &models.CartItem{UserID: other, ProductID: a.ProductID, Quantity: 1, UnitPrice: dec("10")}
	for _, it := range []*models.CartItem{a, b, c, foreign} {
		require.NoError(t, r.AddToCart(ctx, it))
	}

	updated, err := r.UpdateQuantity(ctx, user, a.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)

	_, err = r.UpdateQuantity(ctx, user, foreign.ID, 2)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, r.RemoveLine(ctx, user, c.ID))
	assert.ErrorIs(t, r.RemoveLine(ctx, user, c.ID), repo.ErrNotFound)

	n, err := r.ClearByUser(ctx, user, []uuid.UUID{a.ProductID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = r.ClearByUser(ctx, user, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = r.ClearByUser(ctx, user, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	left, err := r.ListByUser(ctx, other)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func newOrder(user uuid.UUID, number string) (*models.Order, *models.CheckoutSaga) {
	id := uuid.New()
	token := uuid.NewString()
	o := &models.Order{
		ID: id, OrderNumber: number, UserID: user, IdempotencyToken: token,
		Subtotal: dec("100"), Total: dec("100"), Status: models.OrderStatusCompleted,
	}
	s := &models.CheckoutSaga{OrderID: id, UserID: user, Token: token, State: models.SagaLinesPending, Lines: []byte("[]")}
	return o, s
}

func TestOrders_InsertConstraintAndLinesIdempotent(t *testing.T) {
	t.Parallel()
	r := newRepo(t)
	ctx := context.Background()
	user := uuid.New()

	o, s := newOrder(user, "ORD-20260101-AAAAAAAAAAAA")
	require.NoError(t, r.InsertOrder(ctx, o, s))

	dup, dupSaga := newOrder(user, o.OrderNumber)
	err := r.InsertOrder(ctx, dup, dupSaga)
	require.ErrorIs(t, err, repo.ErrConstraint)
	_, err = r.GetSaga(ctx, dup.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound, "journal must roll back with the order")

	lines := func() []models.OrderItem {
		return []models.OrderItem{
			{ProductID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Quantity: 2, Price: dec("500")},
			{ProductID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Quantity: 1, Price: dec("300")},
		}
	}
	n, err := r.InsertOrderLines(ctx, o.ID, lines())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = r.InsertOrderLines(ctx, o.ID, lines())
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := r.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	byToken, err := r.FindOrderByToken(ctx, user, o.IdempotencyToken)
	require.NoError(t, err)
	assert.Equal(t, o.ID, byToken.ID)

	_, err = r.FindOrderByToken(ctx, uuid.New(), o.IdempotencyToken)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	total, list, err := r.ListOrders(ctx, user, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 2)
}

func TestImpact_AtomicIncrement(t *testing.T) {
	t.Parallel()
	r := newRepo(t)
	ctx := context.Background()
	user := uuid.New()

	delta := models.StatsDelta{OrderID: uuid.New(), Token: "t1", Orders: 1, GreenPoints: 25, CO2Saved: dec("2.5"), WaterSaved: dec("4")}

	_, err := r.AtomicIncrement(ctx, user, delta)
	require.ErrorIs(t, err, repo.ErrNotFound)

	_, err = r.GetStats(ctx, user)
	require.ErrorIs(t, err, repo.ErrNotFound)

	_, err = r.Provision(ctx, user)
	require.NoError(t, err)

	st, err := r.AtomicIncrement(ctx, user, delta)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalOrders)
	assert.Equal(t, 25, st.GreenPoints)

	st, err = r.AtomicIncrement(ctx, user, delta)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalOrders, "same order applied twice")
	assert.Equal(t, "2.5", st.CO2Saved.StringFixed(1))
	assert.Equal(t, "4", st.WaterSaved.StringFixed(0))

	again, err := r.Provision(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, again.TotalOrders, "provision keeps existing totals")
}

func TestImpact_ConcurrentIncrementsAreNotLost(t *testing.T) {
	t.Parallel()
	r := newRepo(t)
	ctx := context.Background()
	user := uuid.New()
	_, err := r.Provision(ctx, user)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.AtomicIncrement(ctx, user, models.StatsDelta{OrderID: uuid.New(), Orders: 1, GreenPoints: 5, CO2Saved: dec("1")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	st, err := r.GetStats(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, n, st.TotalOrders)
	assert.Equal(t, 5*n, st.GreenPoints)
}

func TestJournal_AdvanceAndListUnfinished(t *testing.T) {
	t.Parallel()
	r := newRepo(t)
	ctx := context.Background()
	user := uuid.New()

	o1, s1 := newOrder(user, "ORD-1")
	o2, s2 := newOrder(user, "ORD-2")
	require.NoError(t, r.InsertOrder(ctx, o1, s1))
	require.NoError(t, r.InsertOrder(ctx, o2, s2))

	require.NoError(t, r.Advance(ctx, o2.ID, models.SagaLinesPending, models.SagaFinalized, 1, ""))
	require.NoError(t, r.Advance(ctx, o1.ID, models.SagaLinesPending, models.SagaStatsPending, 3, "boom"))
	assert.ErrorIs(t, r.Advance(ctx, uuid.New(), models.SagaLinesPending, models.SagaFailed, 0, ""), repo.ErrNotFound)

	// A worker holding an old view cannot move the journal backwards.
	assert.ErrorIs(t, r.Advance(ctx, o2.ID, models.SagaLinesPending, models.SagaStatsPending, 2, ""), repo.ErrStale)
	done, err := r.GetSaga(ctx, o2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SagaFinalized, done.State)
	assert.Equal(t, 1, done.Attempts)

	saga, err := r.GetSaga(ctx, o1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SagaStatsPending, saga.State)
	assert.Equal(t, 3, saga.Attempts)
	assert.Equal(t, "boom", saga.LastError)

	pending, err := r.ListUnfinished(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, o1.ID, pending[0].OrderID)

	pending, err = r.ListUnfinished(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCatalog_ListFilters(t *testing.T) {
	t.Parallel()
	gdb := dbtest.New(t)
	r := repo.New(gdb)
	ctx := context.Background()

	bottle := dbtest.Product(t, gdb, "Bamboo Bottle", "500", "1.2", 10, "plastic-free", "reusable")
	dbtest.Product(t, gdb, "Hemp Bag", "300", "0.5", 5, "organic")
	require.NoError(t, gdb.Model(&models.Product{}).Where("id = ?", bottle.ID).Update("category", "kitchen").Error)

	tests := []struct {
		name   string
		filter repo.ProductFilter
		want   int64
	}{
		{name: "all", filter: repo.ProductFilter{}, want: 2},
		{name: "category", filter: repo.ProductFilter{Category: "kitchen"}, want: 1},
		{name: "tag", filter: repo.ProductFilter{EcoTag: "organic"}, want: 1},
		{name: "query case-insensitive", filter: repo.ProductFilter{Query: "BAMBOO"}, want: 1},
		{name: "no match", filter: repo.ProductFilter{Query: "steel"}, want: 0},
	}
	for _, tt := range tests {
		total, items, err := r.ListProducts(ctx, tt.filter, 0, 10)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, total, tt.name)
		assert.Len(t, items, int(tt.want), tt.name)
	}

	got, err := r.GetProduct(ctx, bottle.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"plastic-free", "reusable"}, got.EcoTags)

	_, err = r.GetProduct(ctx, uuid.New())
	assert.ErrorIs(t, err, repo.ErrNotFound)

	byIDs, err := r.ProductsByIDs(ctx, []uuid.UUID{bottle.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)

	all, err := r.AllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"eco_tags":["plastic-free","reusable"]`)
}
