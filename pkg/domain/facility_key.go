package domain

import (
	"fmt"
	"strings"
)

// FacilityType identifies which arm of the organization operates a facility.
// The short form doubles as the id prefix in canonical facility ids.
type FacilityType string

const (
	TypeHealth    FacilityType = "vha"
	TypeBenefits  FacilityType = "vba"
	TypeCemetery  FacilityType = "nca"
	TypeVetCenter FacilityType = "vc"
)

var knownTypes = map[FacilityType]struct{}{
	TypeHealth:    {},
	TypeBenefits:  {},
	TypeCemetery:  {},
	TypeVetCenter: {},
}

// ParseFacilityType validates and returns a FacilityType.
func ParseFacilityType(s string) (FacilityType, error) {
	t := FacilityType(strings.ToLower(s))
	if _, ok := knownTypes[t]; !ok {
		return "", fmt.Errorf("unknown facility type: %s", s)
	}
	return t, nil
}

func (t FacilityType) String() string {
	return string(t)
}

// FacilityKey is the sole identity of a facility across all three persisted
// tables. Station numbers compare case-insensitively, so the key stores the
// upper-cased form.
type FacilityKey struct {
	Type          FacilityType
	StationNumber string
}

// NewFacilityKey normalizes the station number and returns a key.
func NewFacilityKey(t FacilityType, stationNumber string) (FacilityKey, error) {
	if _, ok := knownTypes[t]; !ok {
		return FacilityKey{}, fmt.Errorf("unknown facility type: %s", t)
	}
	station := strings.ToUpper(strings.TrimSpace(stationNumber))
	if station == "" {
		return FacilityKey{}, fmt.Errorf("station number is required")
	}
	return FacilityKey{Type: t, StationNumber: station}, nil
}

// ParseFacilityKey parses the canonical "<type>_<stationNumber>" id form.
// Station numbers may themselves contain underscores; only the first
// underscore separates the type prefix.
func ParseFacilityKey(id string) (FacilityKey, error) {
	prefix, station, found := strings.Cut(strings.TrimSpace(id), "_")
	if !found {
		return FacilityKey{}, fmt.Errorf("malformed facility id: %q", id)
	}
	t, err := ParseFacilityType(prefix)
	if err != nil {
		return FacilityKey{}, fmt.Errorf("malformed facility id %q: %w", id, err)
	}
	return NewFacilityKey(t, station)
}

// String renders the canonical id form.
func (k FacilityKey) String() string {
	return string(k.Type) + "_" + k.StationNumber
}

// IsZero reports whether the key is unset.
func (k FacilityKey) IsZero() bool {
	return k.Type == "" && k.StationNumber == ""
}

// MarshalText renders the canonical id form, so keys embed in JSON as plain
// id strings.
func (k FacilityKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the canonical id form.
func (k *FacilityKey) UnmarshalText(text []byte) error {
	parsed, err := ParseFacilityKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
