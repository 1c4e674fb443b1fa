package domain

import (
	"time"

	"github.com/google/uuid"
)

// Address is a user's shipping address. One non-deleted address per user.
type Address struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	FullName     string    `json:"full_name" db:"full_name"`
	PhoneNumber  string    `json:"phone_number" db:"phone_number"`
	BuildingName string    `json:"building_name" db:"building_name"`
	Street       string    `json:"street" db:"street"`
	City         string    `json:"city" db:"city"`
	State        string    `json:"state" db:"state"`
	Country      string    `json:"country" db:"country"`
	ZipCode      string    `json:"zip_code" db:"zip_code"`
	Landmark     string    `json:"landmark" db:"landmark"`
	IsDeleted    bool      `json:"-" db:"is_deleted"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ShippingAddress is the frozen copy embedded in an order. It has no live
// relationship to the Address record it was copied from.
type ShippingAddress struct {
	FullName    string `json:"full_name" db:"ship_full_name"`
	PhoneNumber string `json:"phone_number" db:"ship_phone_number"`
	Street      string `json:"street" db:"ship_street"`
	City        string `json:"city" db:"ship_city"`
	State       string `json:"state" db:"ship_state"`
	Country     string `json:"country" db:"ship_country"`
	ZipCode     string `json:"zip_code" db:"ship_zip_code"`
	Landmark    string `json:"landmark" db:"ship_landmark"`
}

// Snapshot freezes an address into the value copy carried by orders.
func (a *Address) Snapshot() ShippingAddress {
	return ShippingAddress{
		FullName:    a.FullName,
		PhoneNumber: a.PhoneNumber,
		Street:      a.Street,
		City:        a.City,
		State:       a.State,
		Country:     a.Country,
		ZipCode:     a.ZipCode,
		Landmark:    a.Landmark,
	}
}
