//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package transform turns staging records into warehouse rows. Everything in
// this package is pure: it never touches the database, so each stage can be
// tested with plain slices.
package transform

import (
	"strings"

	"github.com/orderdw/orderdw-etl/internal/model"
)

// zipPrefixWidth is the width of a Brazilian CEP prefix.
const zipPrefixWidth = 5

// GeoLocation is the normalized city and state for one zip prefix.
type GeoLocation struct {
	City  string
	State string
}

// GeoLookup maps a normalized zip prefix to its location.
type GeoLookup map[string]GeoLocation

// GeoStats counts what happened while building a GeoLookup.
type GeoStats struct {
	Rows            int
	Prefixes        int
	DuplicateRows   int
	EmptyPrefixRows int
}

// NormalizeCity lowercases and trims a city name.
func NormalizeCity(city string) string {
	return strings.TrimSpace(strings.ToLower(city))
}

// NormalizeState uppercases and trims a state code.
func NormalizeState(state string) string {
	return strings.TrimSpace(strings.ToUpper(state))
}

// NormalizeZipPrefix returns the canonical text form of a zip prefix so that
// both sides of a join agree: surrounding space and a trailing ".0" left by a
// float round trip are removed, and all-digit values shorter than five
// characters are left-padded with zeros ("1037" becomes "01037").
func NormalizeZipPrefix(prefix string) string {
	p := strings.TrimSpace(prefix)
	p = strings.TrimSuffix(p, ".0")
	if p == "" || !isDigits(p) {
		return p
	}
	if len(p) < zipPrefixWidth {
		p = strings.Repeat("0", zipPrefixWidth-len(p)) + p
	}
	return p
}

// BuildGeoLookup normalizes geolocation rows and keeps the first row seen for
// each zip prefix. Rows without a prefix cannot be joined and are skipped.
func BuildGeoLookup(rows []model.Geolocation) (GeoLookup, GeoStats) {
	lookup := make(GeoLookup)
	stats := GeoStats{Rows: len(rows)}

	for _, row := range rows {
		prefix := NormalizeZipPrefix(row.ZipCodePrefix)
		if prefix == "" {
			stats.EmptyPrefixRows++
			continue
		}
		if _, seen := lookup[prefix]; seen {
			stats.DuplicateRows++
			continue
		}
		lookup[prefix] = GeoLocation{
			City:  NormalizeCity(row.City),
			State: NormalizeState(row.State),
		}
	}

	stats.Prefixes = len(lookup)
	return lookup, stats
}

// Resolve returns the location for a raw zip prefix.
func (l GeoLookup) Resolve(prefix string) (GeoLocation, bool) {
	loc, ok := l[NormalizeZipPrefix(prefix)]
	return loc, ok
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
