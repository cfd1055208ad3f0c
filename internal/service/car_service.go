package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"carmarket/internal/domain"
	"carmarket/internal/repository"
)

var (
	// ErrCarNotFound indicates no listing exists for the given id.
	ErrCarNotFound = errors.New("car not found")
	// ErrNotOwner indicates the acting user does not own the listing.
	ErrNotOwner = errors.New("listing belongs to another user")
)

// CarInput carries raw form values for creating or updating a listing.
// ImageURL is nil when no new image was uploaded; on update the stored
// image is then retained verbatim.
type CarInput struct {
	Title       string
	Brand       string
	Model       string
	Year        string
	Price       string
	Mileage     string
	Description string
	ImageURL    *string
}

// BrowseData is everything the index and search pages need: the (possibly
// filtered) listings plus the unfiltered brand and year filter options.
type BrowseData struct {
	Cars   []domain.Car
	Brands []string
	Years  []int
}

// CarService describes listing lifecycle and query operations.
type CarService interface {
	Create(ctx context.Context, ownerID int64, input CarInput) (*domain.Car, error)
	Update(ctx context.Context, carID, editorID int64, input CarInput) error
	Delete(ctx context.Context, carID, requesterID int64) error
	Get(ctx context.Context, carID int64) (*domain.Car, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Car, error)
	Browse(ctx context.Context) (BrowseData, error)
	Search(ctx context.Context, filter repository.CarFilter) (BrowseData, error)
}

type carService struct {
	cars   repository.CarRepository
	logger *logrus.Logger
}

func NewCarService(cars repository.CarRepository, logger *logrus.Logger) CarService {
	return &carService{cars: cars, logger: logger}
}

func (s *carService) Create(ctx context.Context, ownerID int64, input CarInput) (*domain.Car, error) {
	car, err := validateCarInput(input)
	if err != nil {
		return nil, err
	}
	car.UserID = ownerID
	if input.ImageURL != nil {
		car.ImageURL = *input.ImageURL
	}

	if _, err := s.cars.Create(ctx, car); err != nil {
		return nil, err
	}
	return car, nil
}

func (s *carService) Update(ctx context.Context, carID, editorID int64, input CarInput) error {
	existing, err := s.cars.GetByID(ctx, carID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCarNotFound
		}
		return err
	}
	// ownership is checked before any field validation or write
	if existing.UserID != editorID {
		return ErrNotOwner
	}

	car, err := validateCarInput(input)
	if err != nil {
		return err
	}
	car.ID = existing.ID
	car.UserID = existing.UserID
	car.CreatedAt = existing.CreatedAt
	if input.ImageURL != nil {
		car.ImageURL = *input.ImageURL
	} else {
		car.ImageURL = existing.ImageURL
	}

	return s.cars.Update(ctx, car)
}

func (s *carService) Delete(ctx context.Context, carID, requesterID int64) error {
	existing, err := s.cars.GetByID(ctx, carID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCarNotFound
		}
		return err
	}
	if existing.UserID != requesterID {
		return ErrNotOwner
	}
	return s.cars.Delete(ctx, carID)
}

func (s *carService) Get(ctx context.Context, carID int64) (*domain.Car, error) {
	car, err := s.cars.GetWithOwner(ctx, carID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCarNotFound
		}
		return nil, err
	}
	return car, nil
}

func (s *carService) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Car, error) {
	cars, err := s.cars.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.WithError(err).Error("list own cars")
		return nil, err
	}
	return cars, nil
}

func (s *carService) Browse(ctx context.Context) (BrowseData, error) {
	return s.Search(ctx, repository.CarFilter{})
}

// Search runs the filtered listing query plus the unfiltered brand/year
// option queries. Any storage failure degrades to empty data with a logged
// error so the caller can still render the page.
func (s *carService) Search(ctx context.Context, filter repository.CarFilter) (BrowseData, error) {
	cars, err := s.cars.Search(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("search cars")
		return BrowseData{}, err
	}
	brands, err := s.cars.DistinctBrands(ctx)
	if err != nil {
		s.logger.WithError(err).Error("load brand filter options")
		return BrowseData{}, err
	}
	years, err := s.cars.DistinctYears(ctx)
	if err != nil {
		s.logger.WithError(err).Error("load year filter options")
		return BrowseData{}, err
	}
	return BrowseData{Cars: cars, Brands: brands, Years: years}, nil
}

// validateCarInput checks required fields in a fixed order (first failure
// wins) and converts the raw values into a typed listing.
func validateCarInput(input CarInput) (*domain.Car, error) {
	title := strings.TrimSpace(input.Title)
	brand := strings.TrimSpace(input.Brand)
	model := strings.TrimSpace(input.Model)
	yearRaw := strings.TrimSpace(input.Year)
	priceRaw := strings.TrimSpace(input.Price)
	mileageRaw := strings.TrimSpace(input.Mileage)

	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "Title is required."}
	}
	if brand == "" {
		return nil, &ValidationError{Field: "brand", Message: "Brand is required."}
	}
	if model == "" {
		return nil, &ValidationError{Field: "model", Message: "Model is required."}
	}
	if yearRaw == "" {
		return nil, &ValidationError{Field: "year", Message: "Year is required."}
	}
	if priceRaw == "" {
		return nil, &ValidationError{Field: "price", Message: "Price is required."}
	}

	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return nil, &ValidationError{Field: "year", Message: "Year must be a whole number."}
	}
	price, err := strconv.ParseFloat(priceRaw, 64)
	if err != nil {
		return nil, &ValidationError{Field: "price", Message: "Price must be a number."}
	}

	car := &domain.Car{
		Title:       title,
		Brand:       brand,
		Model:       model,
		Year:        year,
		Price:       price,
		Description: strings.TrimSpace(input.Description),
	}

	if mileageRaw != "" {
		mileage, err := strconv.ParseInt(mileageRaw, 10, 64)
		if err != nil {
			return nil, &ValidationError{Field: "mileage", Message: "Mileage must be a whole number."}
		}
		car.Mileage = &mileage
	}

	return car, nil
}
