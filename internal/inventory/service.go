package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	LowStock(ctx context.Context, threshold decimal.Decimal) ([]Product, error)
	DistinctUnits(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, in ProductInput) (int64, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) error
	DeleteProduct(ctx context.Context, id int64) error
}

// ChangeHook runs after a committed catalog write that can regroup reported revenue.
type ChangeHook func(ctx context.Context)

// Service coordinates stock valuation and the product catalog.
type Service struct {
	repo              RepositoryPort
	lowStockThreshold decimal.Decimal
	hooks             []ChangeHook
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	LowStockThreshold decimal.Decimal
}

// NewService builds Service.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	threshold := cfg.LowStockThreshold
	if !threshold.IsPositive() {
		threshold = decimal.NewFromInt(10)
	}
	return &Service{repo: repo, lowStockThreshold: threshold}
}

// OnChange registers a hook run after product updates and deletes.
func (s *Service) OnChange(h ChangeHook) {
	s.hooks = append(s.hooks, h)
}

func (s *Service) changed(ctx context.Context, err error) error {
	if err == nil {
		for _, h := range s.hooks {
			h(ctx)
		}
	}
	return err
}

// Receive applies a purchase receipt in its own transaction.
func (s *Service) Receive(ctx context.Context, productID int64, qty, unitCost decimal.Decimal) (Product, error) {
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := ReceiveLocked(ctx, tx, productID, qty, unitCost)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return updated, nil
}

// ReceiveLocked blends a receipt into a product row locked by tx.
func ReceiveLocked(ctx context.Context, tx TxRepository, productID int64, qty, unitCost decimal.Decimal) (Product, error) {
	if !qty.IsPositive() {
		return Product{}, ErrInvalidQuantity
	}
	if unitCost.IsNegative() {
		return Product{}, ErrInvalidUnitCost
	}
	current, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	return applyBlend(ctx, tx, current, qty, unitCost)
}

// ReceiveLockedByName resolves the product by its exact name before receiving.
func ReceiveLockedByName(ctx context.Context, tx TxRepository, name string, qty, unitCost decimal.Decimal) (Product, error) {
	current, err := tx.GetProductByNameForUpdate(ctx, strings.TrimSpace(name))
	if err != nil {
		return Product{}, err
	}
	return applyBlend(ctx, tx, current, qty, unitCost)
}

func applyBlend(ctx context.Context, tx TxRepository, current Product, qty, unitCost decimal.Decimal) (Product, error) {
	next, err := Blend(current, qty, unitCost)
	if err != nil {
		return Product{}, err
	}
	if err := tx.UpdateStock(ctx, next.ID, next.StockQuantity, next.AveragePurchasePrice); err != nil {
		return Product{}, err
	}
	return next, nil
}

// Consume removes sold units and returns their cost at the current average.
// Stock is re-read under a row lock so a concurrent sale cannot drive it negative.
func (s *Service) Consume(ctx context.Context, productID int64, qty decimal.Decimal) (decimal.Decimal, error) {
	cogs := decimal.Zero
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		next, cost, err := Draw(current, qty)
		if err != nil {
			return err
		}
		if err := tx.UpdateStock(ctx, next.ID, next.StockQuantity, next.AveragePurchasePrice); err != nil {
			return err
		}
		cogs = cost
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return cogs, nil
}

// Quote checks qty against live stock without changing it and prices the COGS.
func (s *Service) Quote(ctx context.Context, productID int64, qty decimal.Decimal) (Quote, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return Quote{}, err
	}
	if qty.IsNegative() {
		return Quote{}, ErrInvalidQuantity
	}
	if qty.GreaterThan(p.StockQuantity) {
		return Quote{}, fmt.Errorf("%w: %s has %s %s, requested %s",
			shared.ErrInsufficientStock, p.Name, p.StockQuantity, p.Unit, qty)
	}
	return Quote{Product: p, COGS: qty.Mul(p.AveragePurchasePrice)}, nil
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts returns the catalog.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

// LowStock lists products at or under the configured threshold but not empty.
func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	return s.repo.LowStock(ctx, s.lowStockThreshold)
}

// DistinctUnits lists units used by the catalog.
func (s *Service) DistinctUnits(ctx context.Context) ([]string, error) {
	return s.repo.DistinctUnits(ctx)
}

// CreateProduct validates and inserts a product.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return 0, err
	}
	return s.repo.CreateProduct(ctx, in)
}

// UpdateProduct validates and updates catalog fields.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	return s.changed(ctx, s.repo.UpdateProduct(ctx, id, in))
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.changed(ctx, s.repo.DeleteProduct(ctx, id))
}
