// Package simtypes holds the value types stored by the simulator's tables:
// geometric and color composites, identifiers and timestamps.
package simtypes

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Vector3 struct{ X, Y, Z float64 }

type Vector4 struct{ X, Y, Z, W float64 }

type Quaternion struct{ X, Y, Z, W float64 }

// GridVector is a region location on the grid, in meters.
type GridVector struct{ X, Y uint32 }

type Color struct{ R, G, B float64 }

type ColorAlpha struct{ R, G, B, A float64 }

// WLVector2 and WLVector4 are windlight environment parameters.
type WLVector2 struct{ X, Y float64 }

type WLVector4 struct{ X, Y, Z, W float64 }

// Date is stored as seconds since the Unix epoch.
type Date struct{ time.Time }

// DateFromUnix returns the Date for sec seconds since the epoch.
func DateFromUnix(sec int64) Date {
	return Date{time.Unix(sec, 0).UTC()}
}

// ParcelID identifies a parcel. It is stored like a UUID.
type ParcelID [16]byte

func (p ParcelID) UUID() uuid.UUID { return uuid.UUID(p) }

func (p ParcelID) String() string { return uuid.UUID(p).String() }

// UGUI is a user identity qualified by its home grid.
type UGUI struct {
	ID      uuid.UUID
	HomeURI string
}

// String renders "id" or "id;homeURI".
func (u UGUI) String() string {
	if u.HomeURI == "" {
		return u.ID.String()
	}
	return u.ID.String() + ";" + u.HomeURI
}

// UGUIWithName is a UGUI that also carries the display name.
type UGUIWithName struct {
	ID        uuid.UUID
	HomeURI   string
	FirstName string
	LastName  string
}

// String renders "id;homeURI;First Last". The home URI is omitted when
// empty, the name part when there is no name.
func (u UGUIWithName) String() string {
	if u.HomeURI == "" {
		return u.ID.String()
	}
	s := u.ID.String() + ";" + u.HomeURI
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		s += ";" + name
	}
	return s
}

func (u UGUIWithName) UGUI() UGUI { return UGUI{ID: u.ID, HomeURI: u.HomeURI} }

// UGI is a group identity qualified by its home grid.
type UGI struct {
	ID        uuid.UUID
	HomeURI   string
	GroupName string
}

func (g UGI) String() string {
	if g.HomeURI == "" {
		return g.ID.String()
	}
	s := g.ID.String() + ";" + g.HomeURI
	if g.GroupName != "" {
		s += ";" + g.GroupName
	}
	return s
}

// ParseUGUIWithName parses the String form of UGUIWithName. A bare id is accepted.
func ParseUGUIWithName(s string) (UGUIWithName, error) {
	parts := strings.SplitN(s, ";", 3)
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return UGUIWithName{}, fmt.Errorf("parse uui %q: %w", s, err)
	}
	u := UGUIWithName{ID: id}
	if len(parts) > 1 {
		u.HomeURI = parts[1]
	}
	if len(parts) > 2 {
		first, last, _ := strings.Cut(parts[2], " ")
		u.FirstName = first
		u.LastName = last
	}
	return u, nil
}

// ParseUGUI parses the String form of UGUI. A trailing name part is ignored.
func ParseUGUI(s string) (UGUI, error) {
	u, err := ParseUGUIWithName(s)
	if err != nil {
		return UGUI{}, err
	}
	return u.UGUI(), nil
}

// ParseUGI parses the String form of UGI.
func ParseUGI(s string) (UGI, error) {
	parts := strings.SplitN(s, ";", 3)
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return UGI{}, fmt.Errorf("parse ugi %q: %w", s, err)
	}
	g := UGI{ID: id}
	if len(parts) > 1 {
		g.HomeURI = parts[1]
	}
	if len(parts) > 2 {
		g.GroupName = parts[2]
	}
	return g, nil
}
