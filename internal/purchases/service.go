package purchases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/inventory"
	"github.com/hesabyar/hesabyar/internal/partners"
	"github.com/hesabyar/hesabyar/internal/shared"
)

// RepositoryPort abstracts purchase persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
	ListPurchases(ctx context.Context, f Filter) ([]Purchase, error)
	DeletePurchase(ctx context.Context, id int64) error
}

// TxRepository writes one purchase and moves stock in the same transaction.
type TxRepository interface {
	InsertPurchase(ctx context.Context, p Purchase) (int64, error)
	InsertItem(ctx context.Context, purchaseID int64, it Item) error
	Stock() inventory.TxRepository
}

// SupplierLookup resolves the supplier named on a purchase.
type SupplierLookup interface {
	GetSupplier(ctx context.Context, id int64) (partners.Supplier, error)
}

// Service records purchase invoices.
type Service struct {
	repo      RepositoryPort
	suppliers SupplierLookup
	logger    *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, suppliers SupplierLookup, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, suppliers: suppliers, logger: logger}
}

// Save stores the purchase and receives every line into stock. Any line
// that cannot be received rolls back the whole purchase.
func (s *Service) Save(ctx context.Context, in Input) (Purchase, error) {
	in.Notes = strings.TrimSpace(in.Notes)
	for i := range in.Items {
		in.Items[i].ProductName = strings.TrimSpace(in.Items[i].ProductName)
	}
	if err := shared.ValidateStruct(in); err != nil {
		return Purchase{}, err
	}
	supplier, err := s.suppliers.GetSupplier(ctx, in.SupplierID)
	if err != nil {
		return Purchase{}, fmt.Errorf("purchases: supplier %d: %w", in.SupplierID, err)
	}

	p := Purchase{
		SupplierID:   &supplier.ID,
		SupplierName: supplier.Name,
		IssueDate:    in.IssueDate,
		TotalAmount:  decimal.Zero,
		Notes:        in.Notes,
		Items:        make([]Item, 0, len(in.Items)),
	}
	for i, li := range in.Items {
		it := Item{
			LineNo:        i + 1,
			ProductID:     li.ProductID,
			ProductName:   li.ProductName,
			Quantity:      li.Quantity,
			PurchasePrice: li.PurchasePrice,
		}
		p.TotalAmount = p.TotalAmount.Add(it.Cost())
		p.Items = append(p.Items, it)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertPurchase(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id
		for i := range p.Items {
			it := &p.Items[i]
			received, err := receive(ctx, tx.Stock(), *it)
			if err != nil {
				return fmt.Errorf("purchases: line %d: %w", it.LineNo, err)
			}
			it.ProductID = &received.ID
			it.ProductName = received.Name
			if err := tx.InsertItem(ctx, id, *it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Purchase{}, shared.TranslatePgError("save purchase", err)
	}
	s.logger.Info("purchase saved",
		slog.Int64("purchase_id", p.ID),
		slog.Int("lines", len(p.Items)),
		slog.String("total", p.TotalAmount.String()))
	return p, nil
}

func receive(ctx context.Context, stock inventory.TxRepository, it Item) (inventory.Product, error) {
	if it.ProductID != nil {
		return inventory.ReceiveLocked(ctx, stock, *it.ProductID, it.Quantity, it.PurchasePrice)
	}
	return inventory.ReceiveLockedByName(ctx, stock, it.ProductName, it.Quantity, it.PurchasePrice)
}

func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.GetPurchase(ctx, id)
}

// List returns purchase headers, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Purchase, error) {
	return s.repo.ListPurchases(ctx, f)
}

// Delete removes the purchase and its lines. Stock already received stays.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeletePurchase(ctx, id)
}
