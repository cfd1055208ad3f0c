package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmarket/internal/domain"
	"carmarket/internal/repository"
)

func newTestDB(t *testing.T) (*sql.DB, repository.UserRepository, repository.CarRepository) {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := NewUserRepository(db)
	cars := NewCarRepository(db)
	require.NoError(t, users.Init(context.Background()))
	require.NoError(t, cars.Init(context.Background()))
	return db, users, cars
}

func seedListings(t *testing.T, users repository.UserRepository, cars repository.CarRepository) {
	t.Helper()
	ctx := context.Background()

	alice, err := users.Create(ctx, &domain.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	bob, err := users.Create(ctx, &domain.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	seed := []domain.Car{
		{UserID: alice, Title: "Reliable commuter", Brand: "Toyota", Model: "Corolla", Year: 2019, Price: 8500},
		{UserID: alice, Title: "Family sedan", Brand: "Honda", Model: "Accord", Year: 2020, Price: 12000},
		{UserID: bob, Title: "Weekend project", Brand: "Toyota", Model: "Supra", Year: 2020, Price: 4000},
	}
	for i := range seed {
		_, err := cars.Create(ctx, &seed[i])
		require.NoError(t, err)
		// created_at second resolution could tie; id breaks the tie anyway
		time.Sleep(2 * time.Millisecond)
	}
}

func titles(cars []domain.Car) []string {
	out := make([]string, len(cars))
	for i, c := range cars {
		out[i] = c.Title
	}
	return out
}

func TestSearchEmptyFilterReturnsAllNewestFirst(t *testing.T) {
	_, users, cars := newTestDB(t)
	seedListings(t, users, cars)

	got, err := cars.Search(context.Background(), repository.CarFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Weekend project", "Family sedan", "Reliable commuter"}, titles(got))

	// owner usernames come along with the join
	assert.Equal(t, "bob", got[0].Username)
	assert.Equal(t, "alice", got[1].Username)
}

func TestSearchByBrand(t *testing.T) {
	_, users, cars := newTestDB(t)
	seedListings(t, users, cars)

	got, err := cars.Search(context.Background(), repository.CarFilter{Brand: "Toyota"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Weekend project", "Reliable commuter"}, titles(got))
	for _, car := range got {
		assert.Equal(t, "Toyota", car.Brand)
	}
}

func TestSearchByYear(t *testing.T) {
	_, users, cars := newTestDB(t)
	seedListings(t, users, cars)

	year := 2020
	got, err := cars.Search(context.Background(), repository.CarFilter{Year: &year})
	require.NoError(t, err)
	assert.Equal(t, []string{"Weekend project", "Family sedan"}, titles(got))
}

func TestSearchByPriceRange(t *testing.T) {
	_, users, cars := newTestDB(t)
	seedListings(t, users, cars)
	ctx := context.Background()

	min, max := 5000.0, 10000.0
	got, err := cars.Search(ctx, repository.CarFilter{MinPrice: &min, MaxPrice: &max})
	require.NoError(t, err)
	assert.Equal(t, []string{"Reliable commuter"}, titles(got))

	// bounds are inclusive
	exact := 8500.0
	got, err = cars.Search(ctx, repository.CarFilter{MinPrice: &exact, MaxPrice: &exact})
	require.NoError(t, err)
	assert.Equal(t, []string{"Reliable commuter"}, titles(got))

	// bounds apply independently
	got, err = cars.Search(ctx, repository.CarFilter{MinPrice: &min})
	require.NoError(t, err)
	assert.Equal(t, []string{"Family sedan", "Reliable commuter"}, titles(got))
}

func TestSearchFreeText(t *testing.T) {
	_, users, cars := newTestDB(t)
	seedListings(t, users, cars)

	// matches title, brand, model, or description, case-insensitively
	got, err := cars.Search(context.Background(), repository.CarFilter{Query: "toyota"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Weekend project", "Reliable commuter"}, titles(got))

	got, err = cars.Search(context.Background(), repository.CarFilter{Query: "accord"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Family sedan"}, titles(got))

	got, err = cars.Search(context.Background(), repository.CarFilter{Query: "no such car"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchCombinedCriteria(t *testing.T) {
	_, users, cars := newTestDB(t)
	seedListings(t, users, cars)

	year := 2020
	min := 5000.0
	got, err := cars.Search(context.Background(), repository.CarFilter{Brand: "Toyota", Year: &year, MinPrice: &min})
	require.NoError(t, err)
	assert.Empty(t, got, "no Toyota from 2020 costs 5000 or more")
}

func TestDistinctFilterOptions(t *testing.T) {
	_, users, cars := newTestDB(t)
	seedListings(t, users, cars)
	ctx := context.Background()

	brands, err := cars.DistinctBrands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Honda", "Toyota"}, brands)

	years, err := cars.DistinctYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2020, 2019}, years)
}

func TestListByOwner(t *testing.T) {
	_, users, cars := newTestDB(t)
	seedListings(t, users, cars)

	all, err := cars.Search(context.Background(), repository.CarFilter{})
	require.NoError(t, err)
	var aliceID int64
	for _, car := range all {
		if car.Username == "alice" {
			aliceID = car.UserID
		}
	}

	got, err := cars.ListByOwner(context.Background(), aliceID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Family sedan", "Reliable commuter"}, titles(got))
}

func TestForeignKeyEnforced(t *testing.T) {
	_, _, cars := newTestDB(t)

	_, err := cars.Create(context.Background(), &domain.Car{
		UserID: 12345,
		Title:  "Orphan",
		Brand:  "Ford",
		Model:  "Focus",
		Year:   2015,
		Price:  3000,
	})
	assert.Error(t, err, "listings must reference an existing user")
}

func TestGetWithOwnerNotFound(t *testing.T) {
	_, _, cars := newTestDB(t)

	_, err := cars.GetWithOwner(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
