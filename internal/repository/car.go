package repository

import (
	"context"

	"carmarket/internal/domain"
)

// CarFilter narrows a listing search. Zero-value fields are ignored;
// pointer fields distinguish "absent" from a legitimate zero.
type CarFilter struct {
	Query    string
	Brand    string
	Year     *int
	MinPrice *float64
	MaxPrice *float64
}

// CarRepository defines persistence operations for Car listings.
type CarRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, car *domain.Car) (int64, error)
	Update(ctx context.Context, car *domain.Car) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Car, error)
	GetWithOwner(ctx context.Context, id int64) (*domain.Car, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Car, error)
	Search(ctx context.Context, filter CarFilter) ([]domain.Car, error)
	DistinctBrands(ctx context.Context) ([]string, error)
	DistinctYears(ctx context.Context) ([]int, error)
}
