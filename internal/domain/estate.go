package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Estate types
const (
	EstateStudio    = "studio"
	EstateApartment = "apartment"
	EstateHouse     = "house"
)

// Estate statuses
const (
	StatusAvailable = "available"
	StatusSold      = "sold"
	StatusRented    = "rented"
)

var validEstateTypes = map[string]bool{
	EstateStudio:    true,
	EstateApartment: true,
	EstateHouse:     true,
}

var validEstateStatuses = map[string]bool{
	StatusAvailable: true,
	StatusSold:      true,
	StatusRented:    true,
}

type Amenities struct {
	CentralHeating        bool `json:"centralHeating"`
	AlarmsAndSecurity     bool `json:"alarmsAndSecurity"`
	FireDetector          bool `json:"fireDetector"`
	Camera                bool `json:"camera"`
	Parking               bool `json:"parking"`
	Electricity           bool `json:"electricity"`
	Gas                   bool `json:"gas"`
	CloseToTransportation bool `json:"closeToTransportation"`
	CloseToBeach          bool `json:"closeToBeach"`
	NatureView            bool `json:"natureView"`
}

type Estate struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	Location       string    `json:"location"`
	Description    string    `json:"description"`
	Type           string    `json:"type"`
	NumOfRooms     int       `json:"numOfRooms"`
	NumOfBathrooms int       `json:"numOfBathroom"`
	NumOfKitchens  int       `json:"numOfKitchen"`
	GarageCapacity int       `json:"garageCapacity"`
	Area           int       `json:"area"`
	Price          float64   `json:"price"`
	Status         string    `json:"status"`
	ForRent        bool      `json:"for_rent"`
	Sold           bool      `json:"sold"`
	VisibleHouse   bool      `json:"visibleHouse"`
	Amenities
	CreatedAt time.Time `json:"created_at"`
}

type EstateInput struct {
	Location       string  `json:"location"`
	Description    string  `json:"description"`
	Type           string  `json:"type"`
	NumOfRooms     int     `json:"numOfRooms"`
	NumOfBathrooms int     `json:"numOfBathroom"`
	NumOfKitchens  int     `json:"numOfKitchen"`
	GarageCapacity int     `json:"garageCapacity"`
	Area           int     `json:"area"`
	Price          float64 `json:"price"`
	ForRent        bool    `json:"for_rent"`
	VisibleHouse   *bool   `json:"visibleHouse,omitempty"`
	Amenities
}

func (in *EstateInput) Normalize() {
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
}

func (in *EstateInput) Validate() error {
	var v Validator
	v.Check(len(in.Location) >= 3 && len(in.Location) <= 255, "location must be 3-255 characters")
	v.Check(len(in.Description) >= 10, "description must be at least 10 characters")
	v.Check(validEstateTypes[in.Type], "type must be one of: studio, apartment, house")
	v.Check(in.NumOfRooms >= 1, "numOfRooms must be at least 1")
	v.Check(in.NumOfBathrooms >= 1, "numOfBathroom must be at least 1")
	v.Check(in.NumOfKitchens >= 0, "numOfKitchen cannot be negative")
	v.Check(in.GarageCapacity >= 0, "garageCapacity cannot be negative")
	v.Check(in.Area >= 1, "area must be at least 1")
	v.Check(in.Price >= 0, "price cannot be negative")
	return v.Err()
}

// ToEstate builds a new available estate owned by ownerID.
func (in *EstateInput) ToEstate(ownerID uuid.UUID) *Estate {
	visible := true
	if in.VisibleHouse != nil {
		visible = *in.VisibleHouse
	}
	return &Estate{
		OwnerID:        ownerID,
		Location:       in.Location,
		Description:    in.Description,
		Type:           in.Type,
		NumOfRooms:     in.NumOfRooms,
		NumOfBathrooms: in.NumOfBathrooms,
		NumOfKitchens:  in.NumOfKitchens,
		GarageCapacity: in.GarageCapacity,
		Area:           in.Area,
		Price:          in.Price,
		Status:         StatusAvailable,
		ForRent:        in.ForRent,
		VisibleHouse:   visible,
		Amenities:      in.Amenities,
	}
}

// EstateUpdate carries the fields an owner may change after listing.
type EstateUpdate struct {
	Location     *string  `json:"location,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Status       *string  `json:"status,omitempty"`
	ForRent      *bool    `json:"for_rent,omitempty"`
	Sold         *bool    `json:"sold,omitempty"`
	VisibleHouse *bool    `json:"visibleHouse,omitempty"`
}

func (u *EstateUpdate) Validate() error {
	var v Validator
	v.Check(u.Location != nil || u.Description != nil || u.Price != nil || u.Status != nil ||
		u.ForRent != nil || u.Sold != nil || u.VisibleHouse != nil, "no updatable fields provided")
	if u.Location != nil {
		n := len(strings.TrimSpace(*u.Location))
		v.Check(n >= 3 && n <= 255, "location must be 3-255 characters")
	}
	if u.Description != nil {
		v.Check(len(strings.TrimSpace(*u.Description)) >= 10, "description must be at least 10 characters")
	}
	if u.Price != nil {
		v.Check(*u.Price >= 0, "price cannot be negative")
	}
	if u.Status != nil {
		v.Check(validEstateStatuses[*u.Status], "status must be one of: available, sold, rented")
	}
	return v.Err()
}

func (u *EstateUpdate) Apply(e *Estate) {
	if u.Location != nil {
		e.Location = strings.TrimSpace(*u.Location)
	}
	if u.Description != nil {
		e.Description = strings.TrimSpace(*u.Description)
	}
	if u.Price != nil {
		e.Price = *u.Price
	}
	if u.Status != nil {
		e.Status = *u.Status
	}
	if u.ForRent != nil {
		e.ForRent = *u.ForRent
	}
	if u.Sold != nil {
		e.Sold = *u.Sold
	}
	if u.VisibleHouse != nil {
		e.VisibleHouse = *u.VisibleHouse
	}
}

// EstateFilter selects a page of estates. Nil flags are not filtered on.
type EstateFilter struct {
	ForRent      *bool
	VisibleHouse *bool
	OwnerID      *uuid.UUID
	Limit        int
	Offset       int
}
