// Package ordernum models order identity as a structured value instead of ad
// hoc string slicing. The remote supplier platform only ever sees the base
// number; split and return derivatives carry a variant suffix that is attached
// at the serialization boundary and stripped on parse.
package ordernum

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Variant marks which derivative of an order a number refers to.
type Variant int

const (
	// VariantNone is the original order.
	VariantNone Variant = iota
	// VariantCompleted is the received portion produced by a partial inbound split.
	VariantCompleted
	// VariantPending is the remaining portion produced by a partial inbound split.
	VariantPending
	// VariantReturn is a return document derived from an order.
	VariantReturn
)

const (
	prefix       = "ORD"
	suffixLen    = 4
	suffixRunes  = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	dateLayout   = "20060102"
	sepCompleted = "-C"
	sepPending   = "-P"
	sepReturn    = "-R"
)

// Number is a parsed order number.
type Number struct {
	Base    string
	Variant Variant
}

// Generate produces a fresh base order number: ORD-YYYYMMDD-XXXX.
// Collisions are possible and handled by the caller retrying.
func Generate(now time.Time) (Number, error) {
	suffix := make([]byte, suffixLen)
	max := big.NewInt(int64(len(suffixRunes)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return Number{}, fmt.Errorf("generating order number suffix: %w", err)
		}
		suffix[i] = suffixRunes[n.Int64()]
	}
	return Number{
		Base: fmt.Sprintf("%s-%s-%s", prefix, now.Format(dateLayout), string(suffix)),
	}, nil
}

// Parse splits a serialized order number into its base and variant. Unknown
// suffixes are treated as part of the base rather than rejected, because the
// random suffix segment may itself end in a suffix-looking rune pair.
func Parse(value string) Number {
	trimmed := strings.TrimSpace(value)
	switch {
	case strings.HasSuffix(trimmed, sepCompleted):
		return Number{Base: strings.TrimSuffix(trimmed, sepCompleted), Variant: VariantCompleted}
	case strings.HasSuffix(trimmed, sepPending):
		return Number{Base: strings.TrimSuffix(trimmed, sepPending), Variant: VariantPending}
	case strings.HasSuffix(trimmed, sepReturn):
		return Number{Base: strings.TrimSuffix(trimmed, sepReturn), Variant: VariantReturn}
	default:
		return Number{Base: trimmed}
	}
}

// String serializes the number with its variant suffix.
func (n Number) String() string {
	switch n.Variant {
	case VariantCompleted:
		return n.Base + sepCompleted
	case VariantPending:
		return n.Base + sepPending
	case VariantReturn:
		return n.Base + sepReturn
	default:
		return n.Base
	}
}

// WithVariant returns a copy of n carrying the requested variant.
func (n Number) WithVariant(v Variant) Number {
	return Number{Base: n.Base, Variant: v}
}

// IsDerived reports whether the number refers to a split or return derivative.
func (n Number) IsDerived() bool {
	return n.Variant != VariantNone
}
