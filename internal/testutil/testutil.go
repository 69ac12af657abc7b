// Package testutil provides shared test helpers for feature values.
package testutil

import (
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"github.com/banshee-data/sensor.features/internal/features"
)

// DefaultTolerance is the absolute tolerance used by AssertFeature.
const DefaultTolerance = 1e-9

// AssertDefined checks that got is defined and within tol of want.
func AssertDefined(t *testing.T, name string, got features.Value, want, tol float64) {
	t.Helper()
	if !got.OK {
		t.Errorf("%s = undefined, want %v", name, want)
		return
	}
	if math.Abs(got.V-want) > tol {
		t.Errorf("%s = %v, want %v (±%g)", name, got.V, want, tol)
	}
}

// AssertUndefined checks that got carries no value.
func AssertUndefined(t *testing.T, name string, got features.Value) {
	t.Helper()
	if got.OK {
		t.Errorf("%s = %v, want undefined", name, got.V)
	}
}

// AssertFeature checks feature f of v against want with DefaultTolerance.
func AssertFeature(t *testing.T, v features.Vector, f features.Feature, want float64) {
	t.Helper()
	AssertDefined(t, f.String(), v[f], want, DefaultTolerance)
}

// ParseCSV splits CSV text into records, failing the test on malformed input.
func ParseCSV(t *testing.T, text string) [][]string {
	t.Helper()
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return records
}
