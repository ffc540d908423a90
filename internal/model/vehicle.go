package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// VehicleKind distinguishes the two kinds of fleet units.
type VehicleKind string

const (
	VehicleTruck     VehicleKind = "truck"
	VehicleEquipment VehicleKind = "equipment"
)

var (
	// ErrVehicleRequired is returned when neither a truck nor an equipment
	// unit is given.
	ErrVehicleRequired = errors.New("a truck or an equipment unit is required")
	// ErrVehicleAmbiguous is returned when both a truck and an equipment unit
	// are given.
	ErrVehicleAmbiguous = errors.New("only one of truck or equipment may be given")
)

// VehicleRef points at exactly one truck or one equipment unit. The zero
// value points at nothing; use TruckRef, EquipmentRef or NewVehicleRef to
// build a valid reference.
//
// In the database a reference is the pair of nullable columns
// truck_id/equipment_id with exactly one of them set.
type VehicleRef struct {
	kind VehicleKind
	id   uint64
}

// TruckRef references a truck.
func TruckRef(id uint64) VehicleRef { return VehicleRef{kind: VehicleTruck, id: id} }

// EquipmentRef references an equipment unit.
func EquipmentRef(id uint64) VehicleRef { return VehicleRef{kind: VehicleEquipment, id: id} }

// NewVehicleRef builds a reference from the optional truck/equipment ID pair
// used by requests and table rows. Exactly one of them must be set and
// non-zero.
func NewVehicleRef(truckID, equipmentID *uint64) (VehicleRef, error) {
	hasTruck := truckID != nil && *truckID != 0
	hasEquipment := equipmentID != nil && *equipmentID != 0
	switch {
	case hasTruck && hasEquipment:
		return VehicleRef{}, ErrVehicleAmbiguous
	case hasTruck:
		return TruckRef(*truckID), nil
	case hasEquipment:
		return EquipmentRef(*equipmentID), nil
	}
	return VehicleRef{}, ErrVehicleRequired
}

func (v VehicleRef) Kind() VehicleKind { return v.kind }
func (v VehicleRef) ID() uint64        { return v.id }
func (v VehicleRef) IsZero() bool      { return v.kind == "" || v.id == 0 }
func (v VehicleRef) IsTruck() bool     { return v.kind == VehicleTruck }

// TruckID returns the truck column value, nil for equipment references.
func (v VehicleRef) TruckID() *uint64 {
	if v.kind != VehicleTruck {
		return nil
	}
	id := v.id
	return &id
}

// EquipmentID returns the equipment column value, nil for truck references.
func (v VehicleRef) EquipmentID() *uint64 {
	if v.kind != VehicleEquipment {
		return nil
	}
	id := v.id
	return &id
}

func (v VehicleRef) String() string {
	if v.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%s#%d", v.kind, v.id)
}

// MarshalJSON renders the reference as {"type": "truck", "id": 12}, or null
// for the zero value.
func (v VehicleRef) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Type VehicleKind `json:"type"`
		ID   uint64      `json:"id"`
	}{v.kind, v.id})
}

// Truck status values.
const (
	VehicleStatusActive      = "active"
	VehicleStatusMaintenance = "maintenance"
	VehicleStatusRetired     = "retired"
)

// ValidVehicleStatus reports whether s is a known vehicle status.
func ValidVehicleStatus(s string) bool {
	switch s {
	case VehicleStatusActive, VehicleStatusMaintenance, VehicleStatusRetired:
		return true
	}
	return false
}

// Truck is a row of the `trucks` table.
type Truck struct {
	ID             uint64              `json:"id"`
	PlateNumber    string              `json:"plate_number"`
	Model          string              `json:"model"`
	CapacityLiters decimal.NullDecimal `json:"capacity_liters"`
	SiteLabel      string              `json:"site_label"`
	Status         string              `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Equipment is a row of the `equipment` table: generators, excavators and
// other fuelled units that are not road trucks.
type Equipment struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	SerialNumber string    `json:"serial_number"`
	Kind         string    `json:"kind"`
	SiteLabel    string    `json:"site_label"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
