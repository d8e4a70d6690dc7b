package clips

import (
	"math"
	"math/rand/v2"
	"time"
)

// MinClipLength is the shortest clip length a policy may ask for
const MinClipLength = time.Millisecond

// LengthPolicy decides how long each candidate clip is.
// Either Fixed is set, or Min and Max bound an independent uniform draw.
type LengthPolicy struct {
	Fixed time.Duration
	Min   time.Duration
	Max   time.Duration
	// WholeSeconds draws an integer number of seconds from [ceil(Min), floor(Max)]
	WholeSeconds bool
}

// FixedLength returns a policy producing clips of exactly d
func FixedLength(d time.Duration) LengthPolicy {
	return LengthPolicy{Fixed: d}
}

// RangeLength returns a policy drawing each clip length uniformly from [min, max]
func RangeLength(min, max time.Duration) LengthPolicy {
	return LengthPolicy{Min: min, Max: max}
}

// Granularity is the clip length used to estimate how many clips make up a duration
func (p LengthPolicy) Granularity() time.Duration {
	if p.Fixed > 0 {
		return p.Fixed
	}
	if p.WholeSeconds {
		return time.Duration(p.minWhole()) * time.Second
	}
	return p.Min
}

// Shortest is the smallest length Next can return
func (p LengthPolicy) Shortest() time.Duration {
	return p.Granularity()
}

// Longest is the largest length Next can return
func (p LengthPolicy) Longest() time.Duration {
	if p.Fixed > 0 {
		return p.Fixed
	}
	if p.WholeSeconds {
		return time.Duration(p.maxWhole()) * time.Second
	}
	return p.Max
}

// Validate rejects policies that would make Partition loop forever
func (p LengthPolicy) Validate() error {
	if p.Fixed < 0 {
		return invalid("clip.duration", "must be positive, got %s", p.Fixed)
	}
	if p.Fixed > 0 {
		if p.Fixed < MinClipLength {
			return invalid("clip.duration", "must be at least %s, got %s", MinClipLength, p.Fixed)
		}
		return nil
	}
	if p.Min <= 0 {
		return invalid("clip.min_duration", "must be positive, got %s", p.Min)
	}
	if p.Min < MinClipLength {
		return invalid("clip.min_duration", "must be at least %s, got %s", MinClipLength, p.Min)
	}
	if p.Max <= 0 {
		return invalid("clip.max_duration", "must be positive, got %s", p.Max)
	}
	if p.Min > p.Max {
		return invalid("clip.min_duration", "%s is greater than max %s", p.Min, p.Max)
	}
	if p.WholeSeconds && p.minWhole() > p.maxWhole() {
		return invalid("clip.whole_seconds", "no whole second between %s and %s", p.Min, p.Max)
	}
	return nil
}

// Next draws the nominal length of the next clip
func (p LengthPolicy) Next(rng *rand.Rand) time.Duration {
	if p.Fixed > 0 {
		return p.Fixed
	}
	if p.WholeSeconds {
		lo, hi := p.minWhole(), p.maxWhole()
		return time.Duration(lo+rng.Int64N(hi-lo+1)) * time.Second
	}
	if p.Min == p.Max {
		return p.Min
	}
	return p.Min + time.Duration(rng.Int64N(int64(p.Max-p.Min)+1))
}

func (p LengthPolicy) minWhole() int64 {
	return int64(math.Ceil(p.Min.Seconds()))
}

func (p LengthPolicy) maxWhole() int64 {
	return int64(math.Floor(p.Max.Seconds()))
}

// Partition walks [0, boundary) and cuts it into contiguous, non-overlapping clips.
// The last clip is truncated at boundary. A zero boundary yields an empty sequence.
func Partition(boundary time.Duration, policy LengthPolicy, rng *rand.Rand) (*Sequence, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if boundary < 0 {
		return nil, invalid("boundary", "must not be negative, got %s", boundary)
	}

	seq := &Sequence{}
	current := time.Duration(0)
	for current < boundary {
		end := min(current+policy.Next(rng), boundary)
		seq.Add(Clip{Index: seq.Len(), Start: current, End: end})
		current = end
	}
	return seq, nil
}

// MaxClips is the most clips Partition can produce for boundary under policy
func MaxClips(boundary time.Duration, policy LengthPolicy) int {
	shortest := policy.Shortest()
	if boundary <= 0 || shortest <= 0 {
		return 0
	}
	return int((boundary + shortest - 1) / shortest)
}
