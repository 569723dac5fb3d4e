// Copyright © 2018 One Concern

package instant

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const (
	minUnix = 0          // 1970
	maxUnix = 4102444800 // 2100
)

func genInstant() gopter.Gen {
	return gopter.CombineGens(
		gen.Int64Range(minUnix, maxUnix),
		gen.IntRange(0, 99),
		gen.Bool(),
		gen.Identifier(),
	).Map(func(values []interface{}) Instant {
		i := New(time.Unix(values[0].(int64), 0).UTC(), uint(values[1].(int)))
		if values[2].(bool) {
			i = i.WithIndex(values[3].(string))
		}
		return i
	})
}

// TestRoundTrip verifies that formatting then parsing an instant yields the same instant.
// Property: Parse(Format(i)) == i
func TestRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("format then parse is the identity", prop.ForAll(
		func(i Instant) bool {
			parsed, err := Parse(Format(i))
			return err == nil && parsed.Equal(i)
		},
		genInstant(),
	))

	properties.Property("a camera prefix and an extension do not change the instant", prop.ForAll(
		func(i Instant, prefix string) bool {
			parsed, ok := FromName(prefix + "_" + Format(i) + ".jpg")
			return ok && parsed.Equal(i)
		},
		genInstant(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestOrdering verifies that Compare is a strict total order when index presence agrees.
func TestOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("antisymmetry", prop.ForAll(
		func(a, b Instant) bool {
			return Compare(a, b) == -Compare(b, a)
		},
		genInstant(), genInstant(),
	))

	properties.Property("equal instants compare as 0, indexed ties are equal", prop.ForAll(
		func(a Instant, index string) bool {
			x, y := a.WithIndex(index), a.WithIndex(index)
			return Compare(a, a) == 0 && x.Equal(y) && Compare(x, y) == 0
		},
		genInstant(), gen.Identifier(),
	))

	properties.Property("transitivity", prop.ForAll(
		func(a, b, c Instant) bool {
			if Compare(a, b) <= 0 && Compare(b, c) <= 0 {
				return Compare(a, c) <= 0
			}
			return true
		},
		genInstant().Map(func(i Instant) Instant { return i.WithoutIndex() }),
		genInstant().Map(func(i Instant) Instant { return i.WithoutIndex() }),
		genInstant().Map(func(i Instant) Instant { return i.WithoutIndex() }),
	))

	properties.Property("formatted names sort like instants", prop.ForAll(
		func(a, b Instant) bool {
			a, b = a.WithoutIndex(), b.WithoutIndex()
			sa, sb := Format(a), Format(b)
			switch Compare(a, b) {
			case -1:
				return sa < sb
			case 1:
				return sa > sb
			default:
				return sa == sb
			}
		},
		genInstant(), genInstant(),
	))

	properties.TestingRun(t)
}
