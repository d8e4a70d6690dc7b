package clips

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// Mode selects how the target duration is turned into a survivor count
type Mode string

const (
	// ModeQuantity partitions the whole source and keeps floor(target/granularity) clips
	ModeQuantity Mode = "quantity"
	// ModeRatio partitions up to the target and keeps roughly one clip in KeepRatio
	ModeRatio Mode = "ratio"
)

// Eviction selects the random removal algorithm
type Eviction string

const (
	// EvictRemove deletes one uniformly chosen clip at a time from the shrinking sequence
	EvictRemove Eviction = "remove"
	// EvictSample draws the surviving index set directly with a partial shuffle
	EvictSample Eviction = "sample"
)

// DefaultKeepRatio keeps one clip in six in ratio mode
const DefaultKeepRatio = 6

// Evict removes n clips at random from candidates and returns the survivors in
// their original order. At least one clip always survives.
func Evict(candidates *Sequence, n int, strategy Eviction, rng *rand.Rand) (*Sequence, error) {
	if candidates == nil || candidates.Len() == 0 {
		return nil, fmt.Errorf("%w: no candidate clips", ErrEmptySelection)
	}
	n = clampDeletes(n, candidates.Len())

	switch strategy {
	case EvictRemove, "":
		return evictRemove(candidates, n, rng), nil
	case EvictSample:
		return evictSample(candidates, n, rng), nil
	default:
		return nil, invalid("selection.eviction", "unknown strategy %q", strategy)
	}
}

func clampDeletes(n, length int) int {
	if n < 0 {
		return 0
	}
	if n > length-1 {
		return length - 1
	}
	return n
}

func evictRemove(candidates *Sequence, n int, rng *rand.Rand) *Sequence {
	survivors := candidates.Clone()
	for range n {
		survivors.removeAt(rng.IntN(survivors.Len()))
	}
	return survivors
}

func evictSample(candidates *Sequence, n int, rng *rand.Rand) *Sequence {
	keep := candidates.Len() - n
	positions := make([]int, candidates.Len())
	for i := range positions {
		positions[i] = i
	}
	// partial Fisher-Yates: the first keep slots become a uniform random subset
	for i := range keep {
		j := i + rng.IntN(len(positions)-i)
		positions[i], positions[j] = positions[j], positions[i]
	}
	chosen := positions[:keep]
	slices.Sort(chosen)

	survivors := &Sequence{clips: make([]Clip, 0, keep)}
	for _, p := range chosen {
		survivors.Add(candidates.At(p))
	}
	return survivors
}

// QuantityCounts holds the arithmetic of quantity mode
type QuantityCounts struct {
	Needed   int `yaml:"needed"`
	Original int `yaml:"original"`
	Delete   int `yaml:"delete"`
}

// QuantityDeletes computes how many clips to drop so that about target worth of
// granularity-sized clips remain. Original is estimated from total, not counted.
func QuantityDeletes(total, target, granularity time.Duration) (QuantityCounts, error) {
	if granularity <= 0 {
		return QuantityCounts{}, invalid("clip.duration", "granularity must be positive, got %s", granularity)
	}
	if target <= 0 {
		return QuantityCounts{}, invalid("selection.target_duration", "must be positive, got %s", target)
	}
	c := QuantityCounts{
		Needed:   int(target / granularity),
		Original: int(total / granularity),
	}
	c.Delete = max(c.Original-c.Needed, 0)
	return c, nil
}

// RatioDeletes computes how many of count clips to drop to keep about one in keepRatio
func RatioDeletes(count, keepRatio int) (keep, del int, err error) {
	if keepRatio < 1 {
		return 0, 0, invalid("selection.keep_ratio", "must be at least 1, got %d", keepRatio)
	}
	keep = max(1, count/keepRatio)
	return keep, max(count-keep, 0), nil
}
