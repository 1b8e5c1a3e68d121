package cheques

import (
	"context"
	"strings"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// RepositoryPort abstracts cheque persistence.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Cheque, error)
	List(ctx context.Context, search string) ([]Cheque, error)
	ListPendingReceived(ctx context.Context, dueFrom, dueTo shared.Date, limit int) ([]Cheque, error)
	Create(ctx context.Context, in Input) (int64, error)
	Update(ctx context.Context, id int64, in Input) error
	Delete(ctx context.Context, id int64) error
	DeleteForInvoice(ctx context.Context, invoiceID int64) (int64, error)
}

// Service manages the cheque register.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func normalize(in *Input) error {
	in.Number = strings.TrimSpace(in.Number)
	if in.Status == "" {
		in.Status = StatusPending
	}
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if in.DueDate < in.IssueDate {
		return shared.NewValidationError("due_date", "due date is before issue date")
	}
	return nil
}

// Create validates and stores a cheque. Status defaults to pending.
func (s *Service) Create(ctx context.Context, in Input) (int64, error) {
	if err := normalize(&in); err != nil {
		return 0, err
	}
	return s.repo.Create(ctx, in)
}

// Update changes a cheque, typically its status once it clears or bounces.
func (s *Service) Update(ctx context.Context, id int64, in Input) error {
	if err := normalize(&in); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, in)
}

// Delete removes a cheque; the invoice it references is untouched.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// DeleteForInvoice removes every cheque pointing at invoiceID.
func (s *Service) DeleteForInvoice(ctx context.Context, invoiceID int64) (int64, error) {
	return s.repo.DeleteForInvoice(ctx, invoiceID)
}

func (s *Service) Get(ctx context.Context, id int64) (View, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return NewView(c), nil
}

// List returns cheques ordered by due date, optionally searching number and description.
func (s *Service) List(ctx context.Context, search string) ([]View, error) {
	list, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, err
	}
	return toViews(list), nil
}

// Upcoming lists the earliest pending received cheques.
func (s *Service) Upcoming(ctx context.Context, limit int) ([]View, error) {
	if limit <= 0 {
		limit = 5
	}
	list, err := s.repo.ListPendingReceived(ctx, "", "", limit)
	if err != nil {
		return nil, err
	}
	return toViews(list), nil
}

// DueBetween lists pending received cheques due within the inclusive range.
func (s *Service) DueBetween(ctx context.Context, r shared.DateRange) ([]View, error) {
	list, err := s.repo.ListPendingReceived(ctx, r.Start, r.End, 1000)
	if err != nil {
		return nil, err
	}
	return toViews(list), nil
}

func toViews(list []Cheque) []View {
	out := make([]View, 0, len(list))
	for _, c := range list {
		out = append(out, NewView(c))
	}
	return out
}
