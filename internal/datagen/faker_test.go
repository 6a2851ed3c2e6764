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
	"regexp"
	"strconv"
	"testing"
	"time"
)

func TestNewFakerSeeded(t *testing.T) {
	f1 := NewFaker(12345)
	f2 := NewFaker(12345)

	// Same seed should produce same sequence
	for i := 0; i < 10; i++ {
		v1 := f1.Int(0, 1000)
		v2 := f2.Int(0, 1000)
		if v1 != v2 {
			t.Errorf("Same seed produced different values: %d != %d", v1, v2)
		}
	}
	if f1.ID() != f2.ID() {
		t.Error("Same seed produced different IDs")
	}
	if f1.Amount(1, 100) != f2.Amount(1, 100) {
		t.Error("Same seed produced different amounts")
	}
}

func TestNewFakerZeroSeed(t *testing.T) {
	f := NewFaker(0)
	if f == nil || f.faker == nil {
		t.Fatal("NewFaker(0) returned an unusable faker")
	}
}

func TestFakerID(t *testing.T) {
	f := NewFaker(1)
	re := regexp.MustCompile(`^[0-9a-f]{32}$`)
	for i := 0; i < 20; i++ {
		if id := f.ID(); !re.MatchString(id) {
			t.Errorf("ID() = %q, want 32 lowercase hex characters", id)
		}
	}
}

func TestFakerChance(t *testing.T) {
	f := NewFaker(2)
	for i := 0; i < 100; i++ {
		if f.Chance(0) {
			t.Fatal("Chance(0) returned true")
		}
		if !f.Chance(1) {
			t.Fatal("Chance(1) returned false")
		}
	}
}

func TestFakerDigits(t *testing.T) {
	f := NewFaker(3)
	d := f.Digits(5)
	if len(d) != 5 {
		t.Errorf("Digits(5) length = %d, want 5", len(d))
	}
	for _, c := range d {
		if c < '0' || c > '9' {
			t.Errorf("Digits contains non-digit: %c", c)
		}
	}
}

func TestFakerAmount(t *testing.T) {
	f := NewFaker(4)
	re := regexp.MustCompile(`^\d+\.\d{2}$`)
	for i := 0; i < 100; i++ {
		a := f.Amount(5, 500)
		if !re.MatchString(a) {
			t.Fatalf("Amount() = %q, want two decimals", a)
		}
		v, _ := strconv.ParseFloat(a, 64)
		if v < 5 || v > 500 {
			t.Errorf("Amount(5, 500) = %s, out of range", a)
		}
	}
}

func TestFakerJitter(t *testing.T) {
	f := NewFaker(5)
	for i := 0; i < 100; i++ {
		v, err := strconv.ParseFloat(f.Jitter(-23.55, 0.05), 64)
		if err != nil {
			t.Fatalf("Jitter returned a non-number: %v", err)
		}
		if v < -23.6 || v > -23.5 {
			t.Errorf("Jitter(-23.55, 0.05) = %f, out of range", v)
		}
	}
}

func TestFakerTimestamps(t *testing.T) {
	f := NewFaker(6)
	start := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 100; i++ {
		ts := f.Timestamp(start, end)
		if ts.Before(start) || ts.After(end) {
			t.Errorf("Timestamp returned %v, outside range [%v, %v]", ts, start, end)
		}
		if ts.Nanosecond() != 0 {
			t.Errorf("Timestamp returned fractional seconds: %v", ts)
		}

		next := f.After(ts, time.Minute, time.Hour)
		if d := next.Sub(ts); d < 59*time.Second || d > time.Hour {
			t.Errorf("After(ts, 1m, 1h) moved by %v", d)
		}
	}
}

func TestChoose(t *testing.T) {
	f := NewFaker(7)
	items := []string{"a", "b", "c"}

	for i := 0; i < 100; i++ {
		result := Choose(f, items)
		if result != "a" && result != "b" && result != "c" {
			t.Errorf("Choose returned %q, not in items", result)
		}
	}

	if got := Choose(f, []string(nil)); got != "" {
		t.Errorf("Choose on empty slice should return zero value, got %q", got)
	}
}

func TestChooseWeighted(t *testing.T) {
	f := NewFaker(8)
	items := []string{"delivered", "canceled"}
	weights := []int{99, 1}

	counts := make(map[string]int)
	for i := 0; i < 1000; i++ {
		counts[ChooseWeighted(f, items, weights)]++
	}

	if counts["delivered"] < counts["canceled"] {
		t.Errorf("Weighted selection not working: delivered=%d, canceled=%d",
			counts["delivered"], counts["canceled"])
	}
	if got := ChooseWeighted(f, []string{"first", "last"}, []int{0, 0}); got != "last" {
		t.Errorf("ChooseWeighted with zero weights = %q, want fallback to last item", got)
	}
}

func TestChooseWeightedEmpty(t *testing.T) {
	f := NewFaker(9)
	if got := ChooseWeighted(f, []string(nil), nil); got != "" {
		t.Errorf("ChooseWeighted on empty slice should return zero value, got %q", got)
	}
}
