package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/zsiskos/roadstartire/internal/cache"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/repository"
)

// MaxStockQuantity is the largest single ledger entry the INT column holds.
const MaxStockQuantity = math.MaxInt32

// StockService appends to the ledger. Nothing here updates or deletes entries.
type StockService struct {
	repo     repository.RepoInterface
	products cache.ProductCache
}

func NewStockService(repo repository.RepoInterface, products cache.ProductCache) *StockService {
	return &StockService{repo: repo, products: products}
}

func (s *StockService) Receive(ctx context.Context, productID int64, quantity int, note string) (*domain.StockEntry, error) {
	if quantity <= 0 || quantity > MaxStockQuantity {
		return nil, fmt.Errorf("%w: received quantity must be between 1 and %d, got %d", ErrInvalidQuantity, MaxStockQuantity, quantity)
	}

	entry := &domain.StockEntry{
		ProductID: productID,
		Kind:      domain.StockReceived,
		Quantity:  quantity,
		Note:      strings.TrimSpace(note),
	}
	if err := s.repo.AppendStockEntry(ctx, entry); err != nil {
		return nil, err
	}

	invalidateProducts(s.products, productID)
	return entry, nil
}

// Shrink records loss or damage. It cannot take stock below zero.
func (s *StockService) Shrink(ctx context.Context, productID int64, quantity int, note string) (*domain.StockEntry, error) {
	if quantity <= 0 || quantity > MaxStockQuantity {
		return nil, fmt.Errorf("%w: shrink quantity must be between 1 and %d, got %d", ErrInvalidQuantity, MaxStockQuantity, quantity)
	}

	entry := &domain.StockEntry{
		ProductID: productID,
		Kind:      domain.StockShrink,
		Quantity:  quantity,
		Note:      strings.TrimSpace(note),
	}
	errTx := s.repo.WithTx(ctx, func(q repository.Queries) error {
		if err := q.LockProducts(ctx, []int64{productID}); err != nil {
			return err
		}
		levels, err := q.StockLevels(ctx, []int64{productID})
		if err != nil {
			return err
		}
		if available := levels[productID].Current(); available < quantity {
			return &InsufficientStockError{ProductID: productID, Requested: quantity, Available: available}
		}
		return q.AppendStockEntry(ctx, entry)
	})
	if errTx != nil {
		return nil, errTx
	}

	invalidateProducts(s.products, productID)
	return entry, nil
}

func (s *StockService) Levels(ctx context.Context, productIDs []int64) (map[int64]domain.StockLevel, error) {
	return s.repo.StockLevels(ctx, productIDs)
}

// History lists the ledger of one product, newest first.
func (s *StockService) History(ctx context.Context, productID int64) ([]domain.StockEntry, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListStockEntries(ctx, productID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.StockEntry{}
	}
	return entries, nil
}
