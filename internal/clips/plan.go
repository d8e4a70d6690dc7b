package clips

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// MaxCandidates bounds how many clips one plan may partition a source into
const MaxCandidates = 1_000_000

// PlanRequest describes one highlight selection
type PlanRequest struct {
	Total     time.Duration
	Target    time.Duration
	Policy    LengthPolicy
	Mode      Mode
	KeepRatio int
	Eviction  Eviction
}

// Plan is the outcome of partitioning and eviction
type Plan struct {
	Mode       Mode          `yaml:"mode"`
	Total      time.Duration `yaml:"total"`
	Target     time.Duration `yaml:"target"`
	Boundary   time.Duration `yaml:"boundary"`
	Deleted    int           `yaml:"deleted"`
	Candidates *Sequence     `yaml:"-"`
	Survivors  *Sequence     `yaml:"-"`
}

// Validate checks the request before any partitioning happens
func (r PlanRequest) Validate() error {
	if err := r.Policy.Validate(); err != nil {
		return err
	}
	if r.Target <= 0 {
		return invalid("selection.target_duration", "must be positive, got %s", r.Target)
	}
	if r.Total < 0 {
		return invalid("source.duration", "must not be negative, got %s", r.Total)
	}
	if n := MaxClips(r.Total, r.Policy); n > MaxCandidates {
		field := "clip.min_duration"
		if r.Policy.Fixed > 0 {
			field = "clip.duration"
		}
		return invalid(field, "%s would cut a %s source into up to %d clips, limit is %d",
			r.Policy.Shortest(), r.Total, n, MaxCandidates)
	}
	switch r.Mode {
	case ModeQuantity, "":
	case ModeRatio:
		if r.KeepRatio < 1 {
			return invalid("selection.keep_ratio", "must be at least 1, got %d", r.KeepRatio)
		}
	default:
		return invalid("selection.mode", "unknown mode %q", r.Mode)
	}
	switch r.Eviction {
	case EvictRemove, EvictSample, "":
	default:
		return invalid("selection.eviction", "unknown strategy %q", r.Eviction)
	}
	return nil
}

// Select partitions the source and evicts clips according to the request
func Select(req PlanRequest, rng *rand.Rand) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	plan := &Plan{Mode: req.Mode, Total: req.Total, Target: req.Target}
	if plan.Mode == "" {
		plan.Mode = ModeQuantity
	}

	var err error
	switch plan.Mode {
	case ModeRatio:
		err = plan.selectRatio(req, rng)
	default:
		err = plan.selectQuantity(req, rng)
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *Plan) selectQuantity(req PlanRequest, rng *rand.Rand) error {
	p.Boundary = req.Total
	candidates, err := Partition(p.Boundary, req.Policy, rng)
	if err != nil {
		return err
	}
	if candidates.Len() == 0 {
		return fmt.Errorf("%w: source duration is %s", ErrEmptySelection, req.Total)
	}

	counts, err := QuantityDeletes(req.Total, req.Target, req.Policy.Granularity())
	if err != nil {
		return err
	}
	return p.evict(candidates, counts.Delete, req.Eviction, rng)
}

func (p *Plan) selectRatio(req PlanRequest, rng *rand.Rand) error {
	p.Boundary = min(req.Target, req.Total)
	candidates, err := Partition(p.Boundary, req.Policy, rng)
	if err != nil {
		return err
	}
	if candidates.Len() == 0 {
		return fmt.Errorf("%w: source duration is %s", ErrEmptySelection, req.Total)
	}

	_, del, err := RatioDeletes(candidates.Len(), req.KeepRatio)
	if err != nil {
		return err
	}
	return p.evict(candidates, del, req.Eviction, rng)
}

func (p *Plan) evict(candidates *Sequence, n int, strategy Eviction, rng *rand.Rand) error {
	survivors, err := Evict(candidates, n, strategy, rng)
	if err != nil {
		return err
	}
	p.Candidates = candidates
	p.Survivors = survivors
	p.Deleted = candidates.Len() - survivors.Len()
	return nil
}

// OutputDuration is the summed length of the surviving clips
func (p *Plan) OutputDuration() time.Duration {
	if p.Survivors == nil {
		return 0
	}
	return p.Survivors.TotalDuration()
}

// NewRand returns a seeded generator for reproducible plans
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
