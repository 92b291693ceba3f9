// Package fingerprint derives the two-number identity key used for attribute
// paths and data blobs.
//
// A Fingerprint is intentionally lossy: unrelated texts may collide, so any
// identity-sensitive caller must also compare the literal text.
package fingerprint

import (
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// DefaultDimensions is the width of the hashed feature vector.
const DefaultDimensions = 64

// Fingerprint is the (max, min) pair of a text's normalised feature vector.
type Fingerprint struct {
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

// Invalid is returned for empty or unprocessable text.
var Invalid = Fingerprint{Max: math.NaN(), Min: math.NaN()}

// Valid reports whether both components are finite.
func (f Fingerprint) Valid() bool {
	return !math.IsNaN(f.Max) && !math.IsInf(f.Max, 0) &&
		!math.IsNaN(f.Min) && !math.IsInf(f.Min, 0)
}

// Equal uses exact numeric equality. Invalid fingerprints are never equal.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Valid() && o.Valid() && f.Max == o.Max && f.Min == o.Min
}

func (f Fingerprint) String() string {
	if !f.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("(%.9f, %.9f)", f.Max, f.Min)
}

// Engine computes fingerprints. Implementations must be pure.
type Engine interface {
	Fingerprint(text string) Fingerprint
}

// Hashing is the default Engine. It hashes rune unigrams and bigrams into a
// signed feature vector, L2-normalises it and keeps the extreme components.
type Hashing struct {
	dims int
}

var _ Engine = (*Hashing)(nil)

// New creates a Hashing engine with DefaultDimensions.
func New() *Hashing {
	return NewWithDimensions(DefaultDimensions)
}

// NewWithDimensions creates a Hashing engine with the given vector width.
// A non-positive width leaves the engine unavailable: every call returns Invalid.
func NewWithDimensions(dims int) *Hashing {
	return &Hashing{dims: dims}
}

// Fingerprint returns Invalid for empty input, a zero vector or non-finite output.
func (h *Hashing) Fingerprint(text string) Fingerprint {
	if h == nil || h.dims <= 0 {
		return Invalid
	}
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return Invalid
	}

	vec := make([]float64, h.dims)
	runes := []rune(text)
	for i, r := range runes {
		h.add(vec, string(r), 1)
		if i+1 < len(runes) {
			h.add(vec, string(runes[i:i+2]), 2)
		}
	}

	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	length := math.Sqrt(sum)
	if length == 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return Invalid
	}

	fp := Fingerprint{Max: math.Inf(-1), Min: math.Inf(1)}
	for _, v := range vec {
		v /= length
		if v > fp.Max {
			fp.Max = v
		}
		if v < fp.Min {
			fp.Min = v
		}
	}
	if !fp.Valid() {
		return Invalid
	}
	return fp
}

func (h *Hashing) add(vec []float64, feature string, weight float64) {
	sum := xxhash.Sum64String(feature)
	idx := sum % uint64(h.dims)
	if (sum>>32)&1 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
