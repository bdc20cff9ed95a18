package models

import "strings"

// Coordinates struct for latitude and longitude
type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Address is a pickup or drop-off location. Lat/Lng are optional; postings and
// users without them are skipped by proximity matching.
type Address struct {
	Line1    string   `bson:"line1" json:"line1"`
	Line2    string   `bson:"line2" json:"line2"`
	Landmark string   `bson:"landmark,omitempty" json:"landmark,omitempty"`
	Pincode  string   `bson:"pincode" json:"pincode"`
	Lat      *float64 `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng      *float64 `bson:"lng,omitempty" json:"lng,omitempty"`
}

// Coordinates returns the address position, or false when either axis is missing.
func (a *Address) Coordinates() (Coordinates, bool) {
	if a == nil || a.Lat == nil || a.Lng == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *a.Lat, Lng: *a.Lng}, true
}

// IsBlank reports whether none of the human-readable lines are filled in.
func (a *Address) IsBlank() bool {
	return a == nil || (strings.TrimSpace(a.Line1) == "" &&
		strings.TrimSpace(a.Line2) == "" &&
		strings.TrimSpace(a.Pincode) == "")
}

// Near is the short place label used in notification text.
func (a *Address) Near() string {
	if a == nil {
		return ""
	}
	if a.Landmark != "" {
		return a.Landmark
	}
	return a.Pincode
}

func (a *Address) clone() *Address {
	if a == nil {
		return nil
	}
	out := *a
	if a.Lat != nil {
		lat := *a.Lat
		out.Lat = &lat
	}
	if a.Lng != nil {
		lng := *a.Lng
		out.Lng = &lng
	}
	return &out
}
