package model

import "time"

// OperatingHours bound slot generation for a day, both ends in HH:MM.
type OperatingHours struct {
	Open  string `json:"open" bson:"open" validate:"required,hhmm"`
	Close string `json:"close" bson:"close" validate:"required,hhmm"`
}

type Location struct {
	Address string `json:"address" bson:"address" validate:"required,min=2,max=200"`
	City    string `json:"city" bson:"city" validate:"required,min=2,max=50"`
	State   string `json:"state,omitempty" bson:"state,omitempty" validate:"omitempty,max=50"`
	Pincode string `json:"pincode,omitempty" bson:"pincode,omitempty" validate:"omitempty,len=6,numeric"`
}

// Turf is a bookable sports ground. PricePerHour is the flat rate applied
// to every generated slot regardless of slot duration.
type Turf struct {
	ID             string         `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name           string         `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Description    string         `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=1000"`
	Location       Location       `json:"location" bson:"location"`
	PricePerHour   float64        `json:"price_per_hour" bson:"price_per_hour" validate:"min=0"`
	OperatingHours OperatingHours `json:"operating_hours" bson:"operating_hours"`
	IsActive       bool           `json:"is_active" bson:"is_active"`
	CreatedBy      string         `json:"created_by" bson:"created_by" validate:"required,mongodb"`
	CreatedAt      time.Time      `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// TurfUpdate carries partial updates; nil/zero fields are left unchanged.
type TurfUpdate struct {
	Name           string          `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description    string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	Location       *Location       `json:"location,omitempty"`
	PricePerHour   *float64        `json:"price_per_hour,omitempty" validate:"omitempty,min=0"`
	OperatingHours *OperatingHours `json:"operating_hours,omitempty"`
	IsActive       *bool           `json:"is_active,omitempty"`
}
