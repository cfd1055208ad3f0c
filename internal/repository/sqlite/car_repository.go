package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carmarket/internal/domain"
	"carmarket/internal/repository"
)

const createCarsTable = `
CREATE TABLE IF NOT EXISTS cars (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	brand TEXT NOT NULL,
	model TEXT NOT NULL,
	year INTEGER NOT NULL,
	price REAL NOT NULL,
	mileage INTEGER NULL,
	description TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
`

const carWithOwnerColumns = `c.id, c.user_id, c.title, c.brand, c.model, c.year, c.price, c.mileage, c.description, c.image_url, c.created_at, u.username`

type CarRepository struct {
	db *sql.DB
}

func NewCarRepository(db *sql.DB) repository.CarRepository {
	return &CarRepository{db: db}
}

func (r *CarRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCarsTable); err != nil {
		return fmt.Errorf("create cars table: %w", err)
	}
	return nil
}

func (r *CarRepository) Create(ctx context.Context, car *domain.Car) (int64, error) {
	car.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO cars (user_id, title, brand, model, year, price, mileage, description, image_url, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		car.UserID,
		car.Title,
		car.Brand,
		car.Model,
		car.Year,
		car.Price,
		car.Mileage,
		car.Description,
		car.ImageURL,
		car.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert car: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("car last insert id: %w", err)
	}
	car.ID = id
	return id, nil
}

func (r *CarRepository) Update(ctx context.Context, car *domain.Car) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE cars
SET title = ?, brand = ?, model = ?, year = ?, price = ?, mileage = ?, description = ?, image_url = ?
WHERE id = ?`,
		car.Title,
		car.Brand,
		car.Model,
		car.Year,
		car.Price,
		car.Mileage,
		car.Description,
		car.ImageURL,
		car.ID,
	)
	if err != nil {
		return fmt.Errorf("update car: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update car rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CarRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cars WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete car: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete car rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CarRepository) GetByID(ctx context.Context, id int64) (*domain.Car, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, title, brand, model, year, price, mileage, description, image_url, created_at
FROM cars
WHERE id = ?`,
		id,
	)

	var car domain.Car
	var mileage sql.NullInt64
	if err := row.Scan(
		&car.ID,
		&car.UserID,
		&car.Title,
		&car.Brand,
		&car.Model,
		&car.Year,
		&car.Price,
		&mileage,
		&car.Description,
		&car.ImageURL,
		&car.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan car: %w", err)
	}
	if mileage.Valid {
		car.Mileage = &mileage.Int64
	}
	return &car, nil
}

func (r *CarRepository) GetWithOwner(ctx context.Context, id int64) (*domain.Car, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+carWithOwnerColumns+`
FROM cars c
JOIN users u ON c.user_id = u.id
WHERE c.id = ?`,
		id,
	)

	car, err := scanCarWithOwner(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return car, nil
}

func (r *CarRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Car, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+carWithOwnerColumns+`
FROM cars c
JOIN users u ON c.user_id = u.id
WHERE c.user_id = ?
ORDER BY c.created_at DESC, c.id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list cars by owner: %w", err)
	}
	defer rows.Close()
	return collectCars(rows)
}

// Search composes a single filtered query over listings joined with their
// owners. Criteria are accumulated as predicate/argument pairs and every
// value travels as a bound parameter.
func (r *CarRepository) Search(ctx context.Context, filter repository.CarFilter) ([]domain.Car, error) {
	var where conditions
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		where.add(`(c.title LIKE ? OR c.brand LIKE ? OR c.model LIKE ? OR c.description LIKE ?)`,
			pattern, pattern, pattern, pattern)
	}
	if filter.Brand != "" {
		where.add(`c.brand = ?`, filter.Brand)
	}
	if filter.Year != nil {
		where.add(`c.year = ?`, *filter.Year)
	}
	if filter.MinPrice != nil {
		where.add(`c.price >= ?`, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where.add(`c.price <= ?`, *filter.MaxPrice)
	}

	query := `
SELECT ` + carWithOwnerColumns + `
FROM cars c
JOIN users u ON c.user_id = u.id` + where.clause() + `
ORDER BY c.created_at DESC, c.id DESC`

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("search cars: %w", err)
	}
	defer rows.Close()
	return collectCars(rows)
}

func (r *CarRepository) DistinctBrands(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT brand FROM cars ORDER BY brand`)
	if err != nil {
		return nil, fmt.Errorf("distinct brands: %w", err)
	}
	defer rows.Close()

	var brands []string
	for rows.Next() {
		var brand string
		if err := rows.Scan(&brand); err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, brand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brands: %w", err)
	}
	return brands, nil
}

func (r *CarRepository) DistinctYears(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT year FROM cars ORDER BY year DESC`)
	if err != nil {
		return nil, fmt.Errorf("distinct years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, year)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate years: %w", err)
	}
	return years, nil
}

// conditions accumulates WHERE predicates with their bound arguments.
type conditions struct {
	clauses []string
	args    []any
}

func (c *conditions) add(clause string, args ...any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *conditions) clause() string {
	if len(c.clauses) == 0 {
		return ""
	}
	out := "\nWHERE " + c.clauses[0]
	for _, extra := range c.clauses[1:] {
		out += " AND " + extra
	}
	return out
}

func scanCarWithOwner(row interface {
	Scan(dest ...any) error
}) (*domain.Car, error) {
	var car domain.Car
	var mileage sql.NullInt64
	if err := row.Scan(
		&car.ID,
		&car.UserID,
		&car.Title,
		&car.Brand,
		&car.Model,
		&car.Year,
		&car.Price,
		&mileage,
		&car.Description,
		&car.ImageURL,
		&car.CreatedAt,
		&car.Username,
	); err != nil {
		return nil, err
	}
	if mileage.Valid {
		car.Mileage = &mileage.Int64
	}
	return &car, nil
}

func collectCars(rows *sql.Rows) ([]domain.Car, error) {
	var cars []domain.Car
	for rows.Next() {
		car, err := scanCarWithOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan car row: %w", err)
		}
		cars = append(cars, *car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate car rows: %w", err)
	}
	return cars, nil
}
