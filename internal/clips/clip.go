package clips

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Clip is a half-open time range [Start, End) of the source video
type Clip struct {
	Index int           `yaml:"index"`
	Start time.Duration `yaml:"start"`
	End   time.Duration `yaml:"end"`
}

// Duration returns the length of the clip
func (c Clip) Duration() time.Duration {
	return c.End - c.Start
}

// ID returns a stable name for the clip derived from its candidate index
func (c Clip) ID() string {
	return fmt.Sprintf("clip_%04d", c.Index)
}

func (c Clip) String() string {
	return fmt.Sprintf("%s[%s,%s)", c.ID(), c.Start, c.End)
}

// Sequence is an ordered list of clips. Insertion order is chronological order.
type Sequence struct {
	clips []Clip
}

// NewSequence creates a sequence from existing clips
func NewSequence(clips ...Clip) *Sequence {
	s := &Sequence{clips: make([]Clip, 0, len(clips))}
	s.clips = append(s.clips, clips...)
	return s
}

// Add appends a clip to the sequence
func (s *Sequence) Add(clip Clip) {
	s.clips = append(s.clips, clip)
}

// Get retrieves a clip by its candidate index
func (s *Sequence) Get(index int) (Clip, bool) {
	return lo.Find(s.clips, func(c Clip) bool { return c.Index == index })
}

// At returns the clip at position i
func (s *Sequence) At(i int) Clip {
	return s.clips[i]
}

// Len returns the number of clips
func (s *Sequence) Len() int {
	return len(s.clips)
}

// All returns a copy of the clips in order
func (s *Sequence) All() []Clip {
	out := make([]Clip, len(s.clips))
	copy(out, s.clips)
	return out
}

// Indexes returns the candidate index of every clip in order
func (s *Sequence) Indexes() []int {
	return lo.Map(s.clips, func(c Clip, _ int) int { return c.Index })
}

// TotalDuration sums the durations of all clips
func (s *Sequence) TotalDuration() time.Duration {
	return lo.SumBy(s.clips, func(c Clip) time.Duration { return c.Duration() })
}

// Clone returns an independent copy of the sequence
func (s *Sequence) Clone() *Sequence {
	return NewSequence(s.clips...)
}

// removeAt deletes the clip at position i, shifting later clips left
func (s *Sequence) removeAt(i int) {
	s.clips = append(s.clips[:i], s.clips[i+1:]...)
}
