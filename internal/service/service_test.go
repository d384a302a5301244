package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/dbtest"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/repo"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/search"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/service"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCartService_AddSnapshotsCatalog(t *testing.T) {
	t.Parallel()
	gdb := dbtest.New(t)
	svc := &service.CartService{Repo: repo.New(gdb)}
	ctx := context.Background()
	user := uuid.New()

	shampoo := dbtest.Product(t, gdb, "Shampoo bar", "500", "1.2", 10, "zero-waste")
	brush := dbtest.Product(t, gdb, "Bamboo brush", "300", "0.5", 5)

	item, err := svc.Add(ctx, user, shampoo.ID, 2)
	require.NoError(t, err)
	assert.True(t, item.UnitPrice.Equal(dec("500")))
	assert.Equal(t, 10, item.GreenPointsPerUnit)
	assert.True(t, item.CO2SavedPerUnit.Equal(dec("1.2")))

	_, err = svc.Add(ctx, user, brush.ID, 1)
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, user, dec("20"))
	require.NoError(t, err)
	assert.Len(t, sum.Items, 2)
	assert.True(t, sum.Subtotal.Equal(dec("1300")), sum.Subtotal.String())
	assert.True(t, sum.Total.Equal(dec("1320")), sum.Total.String())
	assert.Equal(t, 25, sum.GreenPoints)
	assert.True(t, sum.CO2Saved.Equal(dec("2.9")))
}

func TestCartService_Validation(t *testing.T) {
	t.Parallel()
	gdb := dbtest.New(t)
	svc := &service.CartService{Repo: repo.New(gdb)}
	ctx := context.Background()
	user := uuid.New()
	p := dbtest.Product(t, gdb, "Jute bag", "12", "0.3", 2)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{name: "nil product", run: func() error { _, err := svc.Add(ctx, user, uuid.Nil, 1); return err }, want: service.ErrValidation},
		{name: "zero qty", run: func() error { _, err := svc.Add(ctx, user, p.ID, 0); return err }, want: service.ErrValidation},
		{name: "huge qty", run: func() error { _, err := svc.Add(ctx, user, p.ID, service.MaxLineQuantity+1); return err }, want: service.ErrValidation},
		{name: "unknown product", run: func() error { _, err := svc.Add(ctx, user, uuid.New(), 1); return err }, want: service.ErrNotFound},
		{name: "bad donation", run: func() error { _, err := svc.Summary(ctx, user, dec("5")); return err }, want: service.ErrValidation},
		{name: "update unknown line", run: func() error { _, err := svc.UpdateQuantity(ctx, user, uuid.New(), 2); return err }, want: service.ErrNotFound},
		{name: "update zero", run: func() error { _, err := svc.UpdateQuantity(ctx, user, uuid.New(), 0); return err }, want: service.ErrValidation},
		{name: "remove unknown line", run: func() error { return svc.RemoveLine(ctx, user, uuid.New()) }, want: service.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}
}

func TestCartService_ReAddCannotExceedLineLimit(t *testing.T) {
	t.Parallel()
	gdb := dbtest.New(t)
	svc := &service.CartService{Repo: repo.New(gdb)}
	ctx := context.Background()
	user := uuid.New()
	p := dbtest.Product(t, gdb, "Beeswax wrap", "8", "0.2", 1)

	_, err := svc.Add(ctx, user, p.ID, service.MaxLineQuantity)
	require.NoError(t, err)

	_, err = svc.Add(ctx, user, p.ID, service.MaxLineQuantity)
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = svc.Add(ctx, user, p.ID, 1)
	assert.ErrorIs(t, err, service.ErrValidation)

	items, err := svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, service.MaxLineQuantity, items[0].Quantity)
}

func TestCartService_UpdateRemoveClear(t *testing.T) {
	t.Parallel()
	gdb := dbtest.New(t)
	svc := &service.CartService{Repo: repo.New(gdb)}
	ctx := context.Background()
	user, stranger := uuid.New(), uuid.New()

	a, err := svc.Add(ctx, user, dbtest.Product(t, gdb, "A", "1", "0", 0).ID, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, user, dbtest.Product(t, gdb, "B", "2", "0", 0).ID, 1)
	require.NoError(t, err)

	updated, err := svc.UpdateQuantity(ctx, user, a.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)

	_, err = svc.UpdateQuantity(ctx, stranger, a.ID, 1)
	assert.ErrorIs(t, err, service.ErrNotFound)

	require.NoError(t, svc.RemoveLine(ctx, user, a.ID))

	n, err := svc.Clear(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	items, err := svc.List(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, items)
}

type stubSearcher struct {
	err     error
	indexed []models.Product
}

func (s *stubSearcher) Search(_ context.Context, q string, _, _ int) (search.Results, error) {
	if s.err != nil {
		return search.Results{}, s.err
	}
	return search.Results{Total: 1, Items: []models.Product{{Title: "from index: " + q}}}, nil
}

func (s *stubSearcher) IndexProducts(_ context.Context, products []models.Product) (int, error) {
	s.indexed = products
	return len(products), nil
}

func TestCatalogService_SearchAndReindex(t *testing.T) {
	t.Parallel()
	gdb := dbtest.New(t)
	dbtest.Product(t, gdb, "Bamboo brush", "3", "0.1", 1)
	dbtest.Product(t, gdb, "Steel bottle", "20", "2", 5)
	ctx := context.Background()

	noIndex := &service.CatalogService{Repo: repo.New(gdb)}
	total, items, err := noIndex.SearchProducts(ctx, "bamboo", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Bamboo brush", items[0].Title)

	_, err = noIndex.Reindex(ctx)
	assert.ErrorIs(t, err, service.ErrConflict)

	_, _, err = noIndex.SearchProducts(ctx, "   ", 0, 10)
	assert.ErrorIs(t, err, service.ErrValidation)

	idx := &stubSearcher{}
	withIndex := &service.CatalogService{Repo: repo.New(gdb), Search: idx}
	_, items, err = withIndex.SearchProducts(ctx, "bottle", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, "from index: bottle", items[0].Title)

	n, err := withIndex.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, idx.indexed, 2)

	idx.err = errors.New("cluster down")
	total, items, err = withIndex.SearchProducts(ctx, "bottle", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Steel bottle", items[0].Title)
}

func TestCatalogService_GetMissing(t *testing.T) {
	t.Parallel()
	svc := &service.CatalogService{Repo: repo.New(dbtest.New(t))}

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestOrderService_GetIsOwnerOnly(t *testing.T) {
	t.Parallel()
	gdb := dbtest.New(t)
	r := repo.New(gdb)
	svc := &service.OrderService{Repo: r}
	ctx := context.Background()
	owner := uuid.New()

	order := &models.Order{
		ID:               uuid.New(),
		OrderNumber:      "ORD-20260101-AAAAAAAAAAAA",
		UserID:           owner,
		IdempotencyToken: uuid.NewString(),
		Subtotal:         dec("10"),
		DonationAmount:   dec("0"),
		Total:            dec("10"),
		CO2Saved:         dec("0"),
		PlasticSaved:     dec("0"),
		WaterSaved:       dec("0"),
		Status:           models.OrderStatusCompleted,
	}
	saga := &models.CheckoutSaga{OrderID: order.ID, UserID: owner, Token: order.IdempotencyToken, State: models.SagaLinesPending, Lines: datatypes.JSON("[]")}
	require.NoError(t, r.InsertOrder(ctx, order, saga))

	got, err := svc.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)

	_, err = svc.Get(ctx, uuid.New(), order.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	total, list, err := svc.List(ctx, owner, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)
}

func TestImpactService_DashboardAndProvision(t *testing.T) {
	t.Parallel()
	svc := &service.ImpactService{Store: repo.New(dbtest.New(t))}
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Dashboard(ctx, user)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.Provision(ctx, user)
	require.NoError(t, err)

	st, err := svc.Dashboard(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, user, st.UserID)
	assert.Zero(t, st.GreenPoints)

	_, err = svc.Provision(ctx, uuid.Nil)
	assert.ErrorIs(t, err, service.ErrValidation)
}
