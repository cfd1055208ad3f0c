package domain

import "time"

// Car represents a car-for-sale listing owned by a user.
type Car struct {
	ID          int64
	UserID      int64
	Title       string
	Brand       string
	Model       string
	Year        int
	Price       float64
	Mileage     *int64
	Description string
	ImageURL    string
	CreatedAt   time.Time

	// Username is the owner's display name, populated only by queries
	// that join listings with their owners.
	Username string
}
