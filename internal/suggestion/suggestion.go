// Package suggestion searches for conflict-free alternatives to a refused booking.
// It only reads the calendar through Check and never commits anything.
package suggestion

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/nekogravitycat/driving-school-backend/internal/resource"
	"github.com/nekogravitycat/driving-school-backend/internal/schedule"
)

// Checker is the read-only calendar surface the search needs.
type Checker interface {
	Check(c schedule.Candidate) ([]schedule.Conflict, error)
	Resource(id string) (*resource.Resource, bool)
	Resources(kind resource.Kind) []*resource.Resource
}

type Options struct {
	Step     time.Duration
	MaxSteps int
	Limit    int
}

func DefaultOptions() Options {
	return Options{Step: 30 * time.Minute, MaxSteps: 8, Limit: 5}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Step <= 0 {
		o.Step = d.Step
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = d.MaxSteps
	}
	if o.Limit <= 0 {
		o.Limit = d.Limit
	}
	return o
}

// Option is one alternative the caller may commit.
type Option struct {
	ResourceIDs []string
	Interval    schedule.Interval
	Shift       time.Duration
	Swaps       int
	Warnings    []schedule.Conflict
}

// Suggest returns up to opts.Limit alternatives without critical conflicts, ranked by
// absolute time shift, then number of swapped resources, then number of warnings.
// An invalid candidate returns the validation error Check reports.
func Suggest(ctx context.Context, checker Checker, c schedule.Candidate, opts Options) ([]Option, error) {
	opts = opts.withDefaults()

	if _, err := checker.Check(c); err != nil {
		return nil, err
	}

	var (
		found []Option
		seen  = make(map[string]struct{})
	)
	add := func(o Option) {
		key := o.Interval.String() + "|" + strings.Join(o.ResourceIDs, ",")
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		found = append(found, o)
	}

	for _, shift := range shifts(opts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Once enough options exist at a smaller shift, larger shifts cannot outrank them.
		if len(found) >= opts.Limit && abs(shift) > abs(found[opts.Limit-1].Shift) {
			break
		}

		iv := c.Interval.Shift(shift)
		conflicts, err := checker.Check(withSlot(c, c.ResourceIDs, iv))
		if err != nil {
			return nil, err
		}
		if !schedule.HasCritical(conflicts) {
			add(Option{ResourceIDs: slices.Clone(c.ResourceIDs), Interval: iv, Shift: shift, Warnings: conflicts})
			sortOptions(found)
			continue
		}

		if o, ok := swap(checker, c, iv, conflicts); ok {
			o.Shift = shift
			add(o)
			sortOptions(found)
		}
	}

	if len(found) > opts.Limit {
		found = found[:opts.Limit]
	}
	return found, nil
}

// swap replaces every resource holding a critical conflict with a free one of the same kind.
func swap(checker Checker, c schedule.Candidate, iv schedule.Interval, conflicts []schedule.Conflict) (Option, bool) {
	blocked := make(map[string]struct{})
	for _, cf := range conflicts {
		if cf.Severity == schedule.SeverityCritical && cf.ResourceKind != schedule.KindStudent {
			blocked[cf.ResourceID] = struct{}{}
		}
	}
	if len(blocked) == 0 {
		return Option{}, false
	}

	ids := slices.Clone(c.ResourceIDs)
	swaps := 0
	for i, id := range ids {
		if _, ok := blocked[id]; !ok {
			continue
		}
		current, ok := checker.Resource(id)
		if !ok {
			return Option{}, false
		}
		replacement, ok := freeAlternative(checker, c, iv, current.Kind, ids)
		if !ok {
			return Option{}, false
		}
		ids[i] = replacement
		swaps++
	}

	final, err := checker.Check(withSlot(c, ids, iv))
	if err != nil || schedule.HasCritical(final) {
		return Option{}, false
	}
	return Option{ResourceIDs: ids, Interval: iv, Swaps: swaps, Warnings: final}, true
}

func freeAlternative(checker Checker, c schedule.Candidate, iv schedule.Interval, kind resource.Kind, taken []string) (string, bool) {
	for _, alt := range checker.Resources(kind) {
		if slices.Contains(taken, alt.ID) || !alt.ServesCategory(c.Category) {
			continue
		}
		probe := schedule.Candidate{ResourceIDs: []string{alt.ID}, Interval: iv, Type: c.Type, Category: c.Category}
		conflicts, err := checker.Check(probe)
		if err == nil && !schedule.HasCritical(conflicts) {
			return alt.ID, true
		}
	}
	return "", false
}

func withSlot(c schedule.Candidate, ids []string, iv schedule.Interval) schedule.Candidate {
	c.ResourceIDs = ids
	c.Interval = iv
	return c
}

// shifts yields 0, +step, -step, +2*step, -2*step, ...
func shifts(opts Options) []time.Duration {
	out := []time.Duration{0}
	for i := 1; i <= opts.MaxSteps; i++ {
		d := time.Duration(i) * opts.Step
		out = append(out, d, -d)
	}
	return out
}

func sortOptions(options []Option) {
	slices.SortStableFunc(options, func(a, b Option) int {
		if d := abs(a.Shift) - abs(b.Shift); d != 0 {
			if d < 0 {
				return -1
			}
			return 1
		}
		if a.Swaps != b.Swaps {
			return a.Swaps - b.Swaps
		}
		return len(a.Warnings) - len(b.Warnings)
	})
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
