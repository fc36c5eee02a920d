package aggregator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ValentinKolb/dFeed/lib/activity"
)

// GroupStrategy maps an activity to its aggregation group key.
// Activities with equal keys end up in the same aggregate.
type GroupStrategy func(a activity.Activity) string

// ChangedPair is one updated aggregate: Old is the stored version, New
// the version after merging in fresh activities. The feed removes Old's
// timeline row and writes New's.
type ChangedPair struct {
	Old *activity.AggregatedActivity
	New *activity.AggregatedActivity
}

// Aggregator groups, ranks and merges activities.
type Aggregator struct {
	group GroupStrategy
}

// New creates an aggregator with the given group strategy.
func New(group GroupStrategy) *Aggregator {
	return &Aggregator{group: group}
}

// --------------------------------------------------------------------------
// Aggregate
// --------------------------------------------------------------------------

// Aggregate turns a list of activities into ranked aggregates: the
// activities are sorted ascending by id (so each aggregate's internal
// order is oldest to newest), grouped by the strategy and ranked most
// recently updated first.
//
// Duplicate activities within the input collapse silently.
func (ag *Aggregator) Aggregate(activities []activity.Activity) ([]*activity.AggregatedActivity, error) {
	sorted := append([]activity.Activity(nil), activities...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MustSerializationID().Less(sorted[j].MustSerializationID())
	})

	byGroup := make(map[string]*activity.AggregatedActivity)
	var order []string
	for _, a := range sorted {
		group := ag.group(a)
		agg, ok := byGroup[group]
		if !ok {
			agg = activity.NewAggregatedActivity(group)
			byGroup[group] = agg
			order = append(order, group)
		}
		if err := agg.Append(a); err != nil {
			if errors.Is(err, activity.ErrDuplicateActivity) {
				continue
			}
			return nil, err
		}
	}

	result := make([]*activity.AggregatedActivity, 0, len(byGroup))
	for _, group := range order {
		result = append(result, byGroup[group])
	}
	rank(result)
	return result, nil
}

// rank sorts aggregates most recently updated first.
func rank(aggregates []*activity.AggregatedActivity) {
	sort.SliceStable(aggregates, func(i, j int) bool {
		return aggregates[i].UpdatedAt.After(aggregates[j].UpdatedAt)
	})
}

// --------------------------------------------------------------------------
// Merge
// --------------------------------------------------------------------------

// Merge combines fresh activities with the currently stored aggregates.
//
// Fresh activities whose group is not stored yet become new aggregates.
// Activities falling into a stored group produce a ChangedPair: the
// stored aggregate is deep copied, the activities are appended (known
// duplicates are absorbed silently) and the pair is only reported when
// the copy actually differs. The stored inputs are never mutated.
//
// The deleted return value is always empty here; it exists so feed
// level callers handle all three diff classes with one code path.
func (ag *Aggregator) Merge(stored []*activity.AggregatedActivity, activities []activity.Activity) (created []*activity.AggregatedActivity, changed []ChangedPair, deleted []*activity.AggregatedActivity, err error) {
	byGroup := make(map[string]*activity.AggregatedActivity, len(stored))
	for _, agg := range stored {
		byGroup[agg.Group] = agg
	}

	fresh, err := ag.Aggregate(activities)
	if err != nil {
		return nil, nil, nil, err
	}

	for _, agg := range fresh {
		current, ok := byGroup[agg.Group]
		if !ok {
			created = append(created, agg)
			continue
		}

		updated := current.Clone()
		for _, a := range agg.Activities {
			if appendErr := updated.Append(a); appendErr != nil {
				if errors.Is(appendErr, activity.ErrDuplicateActivity) {
					continue
				}
				return nil, nil, nil, fmt.Errorf("merging group %q: %w", agg.Group, appendErr)
			}
		}
		if !updated.EqualActivities(current) {
			changed = append(changed, ChangedPair{Old: current, New: updated})
		}
	}
	return created, changed, nil, nil
}
