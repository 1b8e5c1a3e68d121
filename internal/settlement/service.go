package settlement

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// RepositoryPort abstracts invoice balance persistence.
type RepositoryPort interface {
	WithBalanceTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository reads and writes a locked invoice balance.
type TxRepository interface {
	GetBalanceForUpdate(ctx context.Context, invoiceID int64) (Balance, error)
	UpdatePayment(ctx context.Context, invoiceID int64, b Balance, paymentDate shared.Date) error
}

// Service records payments against persisted invoices.
type Service struct {
	repo  RepositoryPort
	today func() shared.Date
}

// NewService builds Service. today supplies the Jalali date stamped on payments.
func NewService(repo RepositoryPort, today func() shared.Date) *Service {
	return &Service{repo: repo, today: today}
}

// ApplyPayment adds amount to the invoice's paid total in one transaction.
func (s *Service) ApplyPayment(ctx context.Context, invoiceID int64, amount decimal.Decimal) (Balance, error) {
	if !amount.IsPositive() {
		return Balance{}, ErrInvalidAmount
	}
	var result Balance
	err := s.repo.WithBalanceTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetBalanceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		next, err := Apply(current, amount)
		if err != nil {
			return err
		}
		var date shared.Date
		if s.today != nil {
			date = s.today()
		}
		if err := tx.UpdatePayment(ctx, invoiceID, next, date); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return Balance{}, fmt.Errorf("settlement: invoice %d: %w", invoiceID, err)
	}
	return result, nil
}
