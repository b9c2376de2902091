package entity

import "time"

// Status is the operational state of a station. Any state may follow any other.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusInUse       Status = "in_use"
	StatusMaintenance Status = "maintenance"
	StatusOffline     Status = "offline"
)

// Statuses lists the accepted states in display order.
var Statuses = []Status{StatusAvailable, StatusInUse, StatusMaintenance, StatusOffline}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ConnectorType is the plug standard offered by a station.
type ConnectorType string

const (
	ConnectorType1   ConnectorType = "Type 1"
	ConnectorType2   ConnectorType = "Type 2"
	ConnectorCCS     ConnectorType = "CCS"
	ConnectorCHAdeMO ConnectorType = "CHAdeMO"
	ConnectorTesla   ConnectorType = "Tesla"
)

var ConnectorTypes = []ConnectorType{ConnectorType1, ConnectorType2, ConnectorCCS, ConnectorCHAdeMO, ConnectorTesla}

func (c ConnectorType) Valid() bool {
	for _, v := range ConnectorTypes {
		if c == v {
			return true
		}
	}
	return false
}

// PointType is the only supported location geometry.
const PointType = "Point"

// Location is a GeoJSON-style point. Coordinates are [longitude, latitude].
type Location struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
	Address     *string    `json:"address,omitempty"`
}

func (l Location) Longitude() float64 { return l.Coordinates[0] }
func (l Location) Latitude() float64  { return l.Coordinates[1] }

// Station is a charging station record as returned to clients.
type Station struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Location      Location      `json:"location"`
	Status        Status        `json:"status"`
	PowerOutput   float64       `json:"powerOutput"`
	ConnectorType ConnectorType `json:"connectorType"`
	CreatedBy     string        `json:"createdBy"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Patch holds the validated fields of a partial update. Nil means untouched.
// A non-nil Location replaces the whole location, address included.
type Patch struct {
	Name          *string
	Location      *Location
	Status        *Status
	PowerOutput   *float64
	ConnectorType *ConnectorType
	UpdatedAt     time.Time
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Status        Status
	ConnectorType string // case-insensitive substring
	MinPower      *float64
}
