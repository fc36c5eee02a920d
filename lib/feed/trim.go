package feed

import "math/rand"

// DefaultTrimChance is the fraction of writes that trigger a trim.
const DefaultTrimChance = 0.01

// TrimPolicy decides per write whether the timeline gets trimmed down
// to MaxLength. Trimming every write doubles the write load for no
// benefit, so the default policy fires on roughly 1% of writes.
type TrimPolicy func() bool

// AlwaysTrim trims on every write.
func AlwaysTrim() TrimPolicy {
	return func() bool { return true }
}

// NeverTrim disables automatic trimming; explicit Trim calls still work.
func NeverTrim() TrimPolicy {
	return func() bool { return false }
}

// ProbabilisticTrim trims on the given fraction of writes. Pass a
// seeded rand.Rand for deterministic tests, or nil for the shared
// global source.
func ProbabilisticTrim(chance float64, rng *rand.Rand) TrimPolicy {
	roll := rand.Float64
	if rng != nil {
		roll = rng.Float64
	}
	return func() bool {
		return roll() < chance
	}
}
