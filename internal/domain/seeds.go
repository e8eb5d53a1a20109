package domain

// SeedRange is an ordered sequence of simulation seeds. Each seed backs one
// independent trial.
type SeedRange []int64

// NewSeedRange returns the seeds from..to inclusive. Returns nil when to < from.
func NewSeedRange(from, to int64) SeedRange {
	if to < from {
		return nil
	}
	seeds := make(SeedRange, 0, to-from+1)
	for s := from; s <= to; s++ {
		seeds = append(seeds, s)
	}
	return seeds
}

// Contains reports whether seed is part of the range.
func (r SeedRange) Contains(seed int64) bool {
	for _, s := range r {
		if s == seed {
			return true
		}
	}
	return false
}

// Disjoint reports whether a and b share no seed.
func Disjoint(a, b SeedRange) bool {
	seen := make(map[int64]struct{}, len(a))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := seen[s]; ok {
			return false
		}
	}
	return true
}

// Overlap returns the seeds present in both ranges, in the order of b.
func Overlap(a, b SeedRange) []int64 {
	seen := make(map[int64]struct{}, len(a))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	var out []int64
	for _, s := range b {
		if _, ok := seen[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
