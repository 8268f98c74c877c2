package masterdata

import (
	"errors"
	"time"
)

// Material is one SKU of the material master.
type Material struct {
	SKU         string    `json:"sku"`
	ProductName string    `json:"product_name"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Location is a storage location known to the warehouse.
type Location struct {
	Location  string    `json:"location"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaterialInput creates or replaces a material.
type MaterialInput struct {
	SKU         string `json:"sku" validate:"required"`
	ProductName string `json:"product_name" validate:"required"`
	Active      bool   `json:"active"`
}

// LocationInput creates or replaces a location.
type LocationInput struct {
	Location string `json:"location" validate:"required"`
	Active   bool   `json:"active"`
}

// MaterialChange toggles the active flag of one SKU.
type MaterialChange struct {
	SKU    string `json:"sku" validate:"required"`
	Active bool   `json:"active"`
}

// LocationChange toggles the active flag of one location.
type LocationChange struct {
	Location string `json:"location" validate:"required"`
	Active   bool   `json:"active"`
}

var (
	// ErrNotFound indicates the SKU or location does not exist.
	ErrNotFound = errors.New("masterdata: record not found")
	// ErrInvalidInput indicates a blank key or name after normalisation.
	ErrInvalidInput = errors.New("masterdata: invalid input")
)
