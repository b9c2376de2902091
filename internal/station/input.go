package station

import (
	"bytes"
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/station/entity"
)

const (
	nameMinLen    = 2
	nameMaxLen    = 100
	addressMaxLen = 200
	powerMax      = 1000
)

const (
	msgNameRequired     = "Name is required"
	msgNameTooShort     = "Name must be at least 2 characters long"
	msgNameTooLong      = "Name cannot exceed 100 characters"
	msgCoordsRequired   = "Location coordinates are required"
	msgCoordsInvalid    = "Invalid coordinates. Longitude must be between -180 and 180, latitude between -90 and 90"
	msgLocationType     = "Location type must be Point"
	msgAddressTooLong   = "Address cannot exceed 200 characters"
	msgNameNUL          = "Name cannot contain null characters"
	msgAddressNUL       = "Address cannot contain null characters"
	msgStatusRequired   = "Status is required"
	msgStatusInvalid    = "Status must be one of: available, in_use, maintenance, offline"
	msgPowerRequired    = "Power output is required"
	msgPowerNegative    = "Power output cannot be negative"
	msgPowerTooHigh     = "Power output cannot exceed 1000 kW"
	msgConnectorMissing = "Connector type is required"
	msgConnectorInvalid = "Connector type must be one of: Type 1, Type 2, CCS, CHAdeMO, Tesla"
)

// Field is a JSON value that remembers whether its key was present.
// A present key holding null has Set and Null both true.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		f.Null = true
		return nil
	}
	return json.Unmarshal(b, &f.Value)
}

// Present reports a supplied non-null value.
func (f Field[T]) Present() bool { return f.Set && !f.Null }

// LocationInput is the client shape of a location.
type LocationInput struct {
	Type        Field[string]    `json:"type"`
	Coordinates Field[[]float64] `json:"coordinates"`
	Address     Field[string]    `json:"address"`
}

// Input is the body of both create and update requests. Keys outside this
// set, such as id or createdBy, are ignored.
type Input struct {
	Name          Field[string]        `json:"name"`
	Location      Field[LocationInput] `json:"location"`
	Status        Field[string]        `json:"status"`
	PowerOutput   Field[float64]       `json:"powerOutput"`
	ConnectorType Field[string]        `json:"connectorType"`
}

type validator struct {
	fields []apperr.FieldError
}

func (v *validator) fail(field, msg string) {
	v.fields = append(v.fields, apperr.FieldError{Field: field, Message: msg})
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return apperr.Validation(v.fields)
}

func (v *validator) name(f Field[string]) string {
	name := strings.TrimSpace(f.Value)
	switch n := utf8.RuneCountInString(name); {
	case !f.Present() || n == 0:
		v.fail("name", msgNameRequired)
	case strings.ContainsRune(name, 0):
		v.fail("name", msgNameNUL)
	case n < nameMinLen:
		v.fail("name", msgNameTooShort)
	case n > nameMaxLen:
		v.fail("name", msgNameTooLong)
	}
	return name
}

func (v *validator) location(f Field[LocationInput]) entity.Location {
	loc := entity.Location{Type: entity.PointType}
	if !f.Present() {
		v.fail("location.coordinates", msgCoordsRequired)
		return loc
	}
	in := f.Value
	if in.Type.Present() && in.Type.Value != entity.PointType {
		v.fail("location.type", msgLocationType)
	}

	switch c := in.Coordinates.Value; {
	case !in.Coordinates.Present():
		v.fail("location.coordinates", msgCoordsRequired)
	case len(c) != 2 || c[0] < -180 || c[0] > 180 || c[1] < -90 || c[1] > 90:
		v.fail("location.coordinates", msgCoordsInvalid)
	default:
		loc.Coordinates = [2]float64{c[0], c[1]}
	}

	if in.Address.Present() {
		addr := strings.TrimSpace(in.Address.Value)
		switch {
		case strings.ContainsRune(addr, 0):
			v.fail("location.address", msgAddressNUL)
		case utf8.RuneCountInString(addr) > addressMaxLen:
			v.fail("location.address", msgAddressTooLong)
		case addr != "":
			loc.Address = &addr
		}
	}
	return loc
}

func (v *validator) status(f Field[string]) entity.Status {
	s := entity.Status(f.Value)
	switch {
	case !f.Present() || s == "":
		v.fail("status", msgStatusRequired)
	case !s.Valid():
		v.fail("status", msgStatusInvalid)
	}
	return s
}

func (v *validator) powerOutput(f Field[float64]) float64 {
	switch {
	case !f.Present():
		v.fail("powerOutput", msgPowerRequired)
	case f.Value < 0:
		v.fail("powerOutput", msgPowerNegative)
	case f.Value > powerMax:
		v.fail("powerOutput", msgPowerTooHigh)
	}
	return f.Value
}

func (v *validator) connectorType(f Field[string]) entity.ConnectorType {
	c := entity.ConnectorType(f.Value)
	switch {
	case !f.Present() || c == "":
		v.fail("connectorType", msgConnectorMissing)
	case !c.Valid():
		v.fail("connectorType", msgConnectorInvalid)
	}
	return c
}

// Station validates every field and returns the record to insert, without
// identity or timestamps. All failures are reported together.
func (in Input) Station() (entity.Station, error) {
	var v validator
	st := entity.Station{
		Name:          v.name(in.Name),
		Location:      v.location(in.Location),
		Status:        v.status(in.Status),
		PowerOutput:   v.powerOutput(in.PowerOutput),
		ConnectorType: v.connectorType(in.ConnectorType),
	}
	if err := v.err(); err != nil {
		return entity.Station{}, err
	}
	return st, nil
}

// Patch validates only the supplied keys. A key sent as null is validated
// like any other value, so required fields reject it.
func (in Input) Patch() (entity.Patch, error) {
	var v validator
	var p entity.Patch
	if in.Name.Set {
		name := v.name(in.Name)
		p.Name = &name
	}
	if in.Location.Set {
		loc := v.location(in.Location)
		p.Location = &loc
	}
	if in.Status.Set {
		s := v.status(in.Status)
		p.Status = &s
	}
	if in.PowerOutput.Set {
		pw := v.powerOutput(in.PowerOutput)
		p.PowerOutput = &pw
	}
	if in.ConnectorType.Set {
		c := v.connectorType(in.ConnectorType)
		p.ConnectorType = &c
	}
	if err := v.err(); err != nil {
		return entity.Patch{}, err
	}
	return p, nil
}

// ParseFilter reads the optional status, connectorType and minPower query
// parameters of a listing.
func ParseFilter(q url.Values) (entity.Filter, error) {
	var f entity.Filter
	if s := strings.TrimSpace(q.Get("status")); s != "" {
		f.Status = entity.Status(s)
		if !f.Status.Valid() {
			return f, apperr.InvalidInput(msgStatusInvalid)
		}
	}
	f.ConnectorType = strings.TrimSpace(q.Get("connectorType"))
	if strings.ContainsRune(f.ConnectorType, 0) {
		return f, apperr.InvalidInput("connectorType cannot contain null characters")
	}
	if raw := strings.TrimSpace(q.Get("minPower")); raw != "" {
		minPower, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(minPower) {
			return f, apperr.Wrap(apperr.KindInvalidInput, "minPower must be a number", err)
		}
		f.MinPower = &minPower
	}
	return f, nil
}
