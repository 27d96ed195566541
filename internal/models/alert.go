package models

import (
	"time"
)

// AlertType is the hazard class of an Alert.
type AlertType string

const (
	AlertRoadwork    AlertType = "Roadwork"
	AlertTraffic     AlertType = "Traffic"
	AlertFlood       AlertType = "Flood"
	AlertCrash       AlertType = "Crash"
	AlertFire        AlertType = "Fire"
	AlertEarthquake  AlertType = "Earthquake"
	AlertTyphoon     AlertType = "Typhoon"
	AlertLandslide   AlertType = "Landslide"
	AlertOthers      AlertType = "Others"
	AlertEvacuation  AlertType = "Evacuation"
	AlertNotPassable AlertType = "NotPassable"
)

// AlertTypes lists every known hazard class.
var AlertTypes = []AlertType{
	AlertRoadwork, AlertTraffic, AlertFlood, AlertCrash, AlertFire, AlertEarthquake,
	AlertTyphoon, AlertLandslide, AlertOthers, AlertEvacuation, AlertNotPassable,
}

// Valid reports whether t is one of the known hazard classes.
func (t AlertType) Valid() bool {
	for _, known := range AlertTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Calamity reports whether t is a calamity class.
func (t AlertType) Calamity() bool {
	switch t {
	case AlertEarthquake, AlertTyphoon, AlertLandslide, AlertOthers:
		return true
	}
	return false
}

// Alert is a hazard report as delivered by the feed.
type Alert struct {
	Key        string     `json:"key"`
	Type       AlertType  `json:"type"`
	Latitude   float64    `json:"lat"`
	Longitude  float64    `json:"lng"`
	Area       string     `json:"area,omitempty"`
	Message    string     `json:"message,omitempty"`
	CreatedAt  time.Time  `json:"time"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Authority  bool       `json:"authority,omitempty"` // authority-issued closure
}

// Coordinate returns the alert location.
func (a Alert) Coordinate() Coordinate {
	return Coordinate{Latitude: a.Latitude, Longitude: a.Longitude}
}

// HasLocation reports whether the alert carries usable coordinates.
func (a Alert) HasLocation() bool {
	return a.Latitude != 0 && a.Longitude != 0
}

// Resolved reports whether an external actor marked the alert resolved.
func (a Alert) Resolved() bool {
	return a.ResolvedAt != nil
}

// Expired reports whether an externally supplied expiry time has been reached.
func (a Alert) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}
