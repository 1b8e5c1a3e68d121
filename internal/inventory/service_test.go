package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hesabyar/hesabyar/internal/shared"
)

type memoryRepo struct {
	mu        sync.Mutex
	products  map[int64]Product
	nextID    int64
	updateErr error
}

type memoryTx struct {
	repo    *memoryRepo
	pending map[int64]Product
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product)}
}

func (r *memoryRepo) seed(p Product) Product {
	r.nextID++
	p.ID = r.nextID
	r.products[p.ID] = p
	return p
}

// WithTx serialises callers and applies staged writes only when fn succeeds.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memoryTx{repo: r, pending: make(map[int64]Product)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, p := range tx.pending {
		r.products[id] = p
	}
	return nil
}

func (r *memoryRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if filter.Search == "" || strings.Contains(p.Name, filter.Search) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepo) LowStock(ctx context.Context, threshold decimal.Decimal) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if p.StockQuantity.IsPositive() && p.StockQuantity.LessThanOrEqual(threshold) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) DistinctUnits(ctx context.Context) ([]string, error) { return nil, nil }

func (r *memoryRepo) CreateProduct(ctx context.Context, in ProductInput) (int64, error) {
	for _, p := range r.products {
		if p.Name == in.Name {
			return 0, &shared.PersistenceError{Op: "create product", Message: "duplicate", Err: errors.New("23505")}
		}
	}
	p := r.seed(Product{Name: in.Name, Unit: in.Unit, UnitPrice: in.UnitPrice, AccountID: in.AccountID})
	return p.ID, nil
}

func (r *memoryRepo) UpdateProduct(ctx context.Context, id int64, in ProductInput) error {
	p, ok := r.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Name, p.Unit, p.UnitPrice, p.AccountID = in.Name, in.Unit, in.UnitPrice, in.AccountID
	r.products[id] = p
	return nil
}

func (r *memoryRepo) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (tx *memoryTx) GetProductForUpdate(ctx context.Context, id int64) (Product, error) {
	if p, ok := tx.pending[id]; ok {
		return p, nil
	}
	p, ok := tx.repo.products[id]
	if !ok {
		return Product{}, fmt.Errorf("product %d: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

func (tx *memoryTx) GetProductByNameForUpdate(ctx context.Context, name string) (Product, error) {
	for _, p := range tx.repo.products {
		if p.Name == name {
			return tx.GetProductForUpdate(ctx, p.ID)
		}
	}
	return Product{}, shared.ErrNotFound
}

func (tx *memoryTx) UpdateStock(ctx context.Context, id int64, stock, avg decimal.Decimal) error {
	if tx.repo.updateErr != nil {
		return tx.repo.updateErr
	}
	p, err := tx.GetProductForUpdate(ctx, id)
	if err != nil {
		return err
	}
	p.StockQuantity, p.AveragePurchasePrice = stock, avg
	tx.pending[id] = p
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestAverageMovingCost(t *testing.T) {
	repo := newMemoryRepo()
	p := repo.seed(Product{Name: "widget"})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	got, err := svc.Receive(ctx, p.ID, dec("10"), dec("100"))
	require.NoError(t, err)
	requireDec(t, "10", got.StockQuantity)
	requireDec(t, "100", got.AveragePurchasePrice)

	got, err = svc.Receive(ctx, p.ID, dec("10"), dec("200"))
	require.NoError(t, err)
	requireDec(t, "20", got.StockQuantity)
	requireDec(t, "150", got.AveragePurchasePrice)
}

func TestReceiveBlendsIntoExistingStock(t *testing.T) {
	repo := newMemoryRepo()
	p := repo.seed(Product{Name: "bolt", StockQuantity: dec("5"), AveragePurchasePrice: dec("30")})
	svc := NewService(repo, ServiceConfig{})

	got, err := svc.Receive(context.Background(), p.ID, dec("5"), dec("50"))
	require.NoError(t, err)
	requireDec(t, "10", got.StockQuantity)
	requireDec(t, "40", got.AveragePurchasePrice)
	requireDec(t, "40", repo.products[p.ID].AveragePurchasePrice)
}

func TestReceiveUnknownProduct(t *testing.T) {
	svc := NewService(newMemoryRepo(), ServiceConfig{})
	_, err := svc.Receive(context.Background(), 99, dec("1"), dec("1"))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReceiveRejectsBadInput(t *testing.T) {
	repo := newMemoryRepo()
	p := repo.seed(Product{Name: "nut"})
	svc := NewService(repo, ServiceConfig{})

	_, err := svc.Receive(context.Background(), p.ID, dec("0"), dec("1"))
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Receive(context.Background(), p.ID, dec("1"), dec("-1"))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestConsumeKeepsAverageAndReturnsCOGS(t *testing.T) {
	repo := newMemoryRepo()
	p := repo.seed(Product{Name: "cable", StockQuantity: dec("4"), AveragePurchasePrice: dec("12.5")})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Receive(ctx, p.ID, dec("6"), dec("20"))
	require.NoError(t, err)
	avgAfterReceipt := repo.products[p.ID].AveragePurchasePrice

	cogs, err := svc.Consume(ctx, p.ID, dec("6"))
	require.NoError(t, err)
	requireDec(t, "4", repo.products[p.ID].StockQuantity)
	assert.True(t, avgAfterReceipt.Equal(repo.products[p.ID].AveragePurchasePrice))
	assert.True(t, cogs.Equal(dec("6").Mul(avgAfterReceipt)))
}

func TestConsumeInsufficientStockLeavesRowUntouched(t *testing.T) {
	repo := newMemoryRepo()
	p := repo.seed(Product{Name: "lamp", StockQuantity: dec("5"), AveragePurchasePrice: dec("7")})
	svc := NewService(repo, ServiceConfig{})

	_, err := svc.Consume(context.Background(), p.ID, dec("8"))
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	requireDec(t, "5", repo.products[p.ID].StockQuantity)
}

func TestConsumeConcurrentNeverNegative(t *testing.T) {
	repo := newMemoryRepo()
	p := repo.seed(Product{Name: "pen", StockQuantity: dec("10"), AveragePurchasePrice: dec("1")})
	svc := NewService(repo, ServiceConfig{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	failures := 0
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Consume(context.Background(), p.ID, dec("1")); err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, failures)
	requireDec(t, "0", repo.products[p.ID].StockQuantity)
}

func TestConsumeUpdateFailureRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	p := repo.seed(Product{Name: "cup", StockQuantity: dec("3")})
	repo.updateErr = errors.New("disk full")
	svc := NewService(repo, ServiceConfig{})

	_, err := svc.Consume(context.Background(), p.ID, dec("1"))
	require.Error(t, err)
	requireDec(t, "3", repo.products[p.ID].StockQuantity)
}

func TestQuote(t *testing.T) {
	repo := newMemoryRepo()
	p := repo.seed(Product{Name: "desk", Unit: "pcs", StockQuantity: dec("5"), AveragePurchasePrice: dec("30")})
	svc := NewService(repo, ServiceConfig{})

	q, err := svc.Quote(context.Background(), p.ID, dec("2"))
	require.NoError(t, err)
	requireDec(t, "60", q.COGS)
	requireDec(t, "5", repo.products[p.ID].StockQuantity)

	_, err = svc.Quote(context.Background(), p.ID, dec("8"))
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestBlendZeroStock(t *testing.T) {
	got, err := Blend(Product{StockQuantity: dec("0"), AveragePurchasePrice: dec("0")}, dec("10"), dec("100"))
	require.NoError(t, err)
	requireDec(t, "100", got.AveragePurchasePrice)

	_, _, err = Draw(Product{StockQuantity: dec("1")}, dec("0"))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateProductValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, ProductInput{Name: "  "})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "chair", UnitPrice: dec("-1")})
	require.ErrorIs(t, err, shared.ErrValidation)

	id, err := svc.CreateProduct(ctx, ProductInput{Name: " chair ", Unit: "pcs", UnitPrice: dec("250")})
	require.NoError(t, err)
	assert.Equal(t, "chair", repo.products[id].Name)

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "chair"})
	require.ErrorIs(t, err, shared.ErrPersistence)
}

func TestCatalogWritesRunChangeHooks(t *testing.T) {
	repo := newMemoryRepo()
	p := repo.seed(Product{Name: "lamp", Unit: "pcs"})
	svc := NewService(repo, ServiceConfig{})
	calls := 0
	svc.OnChange(func(context.Context) { calls++ })
	ctx := context.Background()

	account := int64(4)
	require.NoError(t, svc.UpdateProduct(ctx, p.ID, ProductInput{Name: "lamp", Unit: "pcs", AccountID: &account}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, &account, repo.products[p.ID].AccountID)

	require.ErrorIs(t, svc.UpdateProduct(ctx, 999, ProductInput{Name: "ghost"}), shared.ErrNotFound)
	require.ErrorIs(t, svc.UpdateProduct(ctx, p.ID, ProductInput{Name: " "}), shared.ErrValidation)
	assert.Equal(t, 1, calls, "failed writes do not notify")

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	assert.Equal(t, 2, calls)
}

func TestLowStockUsesDefaultThreshold(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Product{Name: "a", StockQuantity: dec("3")})
	repo.seed(Product{Name: "b", StockQuantity: dec("0")})
	repo.seed(Product{Name: "c", StockQuantity: dec("11")})
	svc := NewService(repo, ServiceConfig{})

	low, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "a", low[0].Name)
}
