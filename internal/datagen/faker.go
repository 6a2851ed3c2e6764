//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Faker draws the field values of the sample dataset.
type Faker struct {
	faker *gofakeit.Faker
}

// NewFaker creates a Faker. The same non-zero seed always yields the same
// sequence of values; zero seeds from the clock.
func NewFaker(seed uint64) *Faker {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Faker{faker: gofakeit.New(seed)}
}

// ID returns a 32 character lowercase hex identifier, the shape of every
// natural key in the source files.
func (f *Faker) ID() string {
	return strings.ReplaceAll(f.faker.UUID(), "-", "")
}

// Int returns an integer in [min, max].
func (f *Faker) Int(min, max int) int {
	return f.faker.IntRange(min, max)
}

// Chance reports true with probability p.
func (f *Faker) Chance(p float64) bool {
	return p > 0 && f.faker.Float64() < p
}

// Digits returns n random digits.
func (f *Faker) Digits(n int) string {
	return f.faker.DigitN(uint(n))
}

// Amount returns a money value in [min, max] with two decimals.
func (f *Faker) Amount(min, max float64) string {
	return fmt.Sprintf("%.2f", f.faker.Price(min, max))
}

// Jitter returns v moved by up to spread in either direction, formatted as
// a coordinate.
func (f *Faker) Jitter(v, spread float64) string {
	return strconv.FormatFloat(v+f.faker.Float64Range(-spread, spread), 'f', 6, 64)
}

// Timestamp returns a whole-second time in [start, end].
func (f *Faker) Timestamp(start, end time.Time) time.Time {
	return f.faker.DateRange(start, end).Truncate(time.Second)
}

// After returns a whole-second time between min and max after t.
func (f *Faker) After(t time.Time, min, max time.Duration) time.Time {
	return t.Add(time.Duration(f.faker.IntRange(int(min), int(max)))).Truncate(time.Second)
}

// Choose returns a random element of items, or the zero value when items is
// empty.
func Choose[T any](f *Faker, items []T) T {
	if len(items) == 0 {
		var zero T
		return zero
	}
	return items[f.Int(0, len(items)-1)]
}

// ChooseWeighted picks items[i] with probability weights[i] / sum(weights).
func ChooseWeighted[T any](f *Faker, items []T, weights []int) T {
	if len(items) == 0 || len(weights) == 0 {
		var zero T
		return zero
	}

	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return items[len(items)-1]
	}

	r := f.Int(1, total)
	for i, w := range weights[:min(len(weights), len(items))] {
		if r -= w; r <= 0 {
			return items[i]
		}
	}
	return items[len(items)-1]
}
