package store

import (
	"fmt"
	"sort"
	"time"
)

// CreateComposite registers a comparison or trend job, or returns the
// existing record when the same member sequence was already submitted.
// Same single-flight contract as GetOrCreate: at most one concurrent
// caller observes created=true.
func (s *Store) CreateComposite(id, kind string, urls, memberIDs []string) (CompositeJob, bool) {
	s.compositesMu.Lock()
	defer s.compositesMu.Unlock()

	if c, ok := s.composites[id]; ok {
		return *c, false
	}

	s.evictCompositesLocked()
	c := &CompositeJob{
		ID:           id,
		Kind:         kind,
		Status:       StatusProcessing,
		URLs:         urls,
		MemberJobIDs: memberIDs,
		CreatedAt:    s.clock.Now(),
	}
	s.composites[id] = c
	return *c, true
}

// GetComposite returns a snapshot of the composite job for id.
func (s *Store) GetComposite(id string) (CompositeJob, error) {
	s.compositesMu.RLock()
	defer s.compositesMu.RUnlock()
	c, ok := s.composites[id]
	if !ok {
		return CompositeJob{}, ErrNotFound
	}
	return *c, nil
}

// AdvanceComposite increments the progress counter after a member's data
// was collected. The counter never moves backwards.
func (s *Store) AdvanceComposite(id string) error {
	s.compositesMu.Lock()
	defer s.compositesMu.Unlock()
	c, ok := s.composites[id]
	if !ok {
		return ErrNotFound
	}
	c.ProgressCount++
	return nil
}

// CompleteComparison finishes a comparison job with its result.
func (s *Store) CompleteComparison(id string, result *ComparisonResult) error {
	return s.completeComposite(id, KindComparison, func(c *CompositeJob) {
		c.Comparison = result
	})
}

// CompleteTrend finishes a trend job with its result.
func (s *Store) CompleteTrend(id string, result *TrendResult) error {
	return s.completeComposite(id, KindTrend, func(c *CompositeJob) {
		c.Trends = result
	})
}

func (s *Store) completeComposite(id, kind string, attach func(*CompositeJob)) error {
	s.compositesMu.Lock()
	defer s.compositesMu.Unlock()
	c, ok := s.composites[id]
	if !ok {
		return ErrNotFound
	}
	if c.Kind != kind {
		return fmt.Errorf("composite %s is a %s job, not %s", id, c.Kind, kind)
	}
	if c.Status != StatusProcessing {
		return fmt.Errorf("composite %s is already %s", id, c.Status)
	}
	attach(c)
	c.Status = StatusCompleted
	c.CompletedAt = s.clock.Now()
	return nil
}

// FailComposite transitions a processing composite job to error.
func (s *Store) FailComposite(id, message string) error {
	s.compositesMu.Lock()
	defer s.compositesMu.Unlock()
	c, ok := s.composites[id]
	if !ok {
		return ErrNotFound
	}
	if c.Status != StatusProcessing {
		return fmt.Errorf("composite %s is already %s", id, c.Status)
	}
	c.Status = StatusError
	c.Error = message
	c.CompletedAt = s.clock.Now()
	return nil
}

// evictCompositesLocked enforces the job bound on composite records:
// terminal composites are dropped oldest-first to make room.
func (s *Store) evictCompositesLocked() {
	if len(s.composites) < s.maxJobs {
		return
	}

	type victim struct {
		id          string
		completedAt time.Time
	}
	candidates := make([]victim, 0)
	for id, c := range s.composites {
		if c.Terminal() {
			candidates = append(candidates, victim{id, c.CompletedAt})
		}
	}
	sort.Slice(candidates, func(i, k int) bool {
		return candidates[i].completedAt.Before(candidates[k].completedAt)
	})

	for _, v := range candidates {
		if len(s.composites) < s.maxJobs {
			break
		}
		delete(s.composites, v.id)
	}
}
