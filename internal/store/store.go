package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Default capacity bounds. Terminal jobs beyond MaxJobs are evicted
// oldest-first; in-flight jobs are never evicted, so the bound is soft
// while work is outstanding.
const (
	DefaultMaxJobs     = 256
	DefaultMaxSessions = 512
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Store holds all process-local state: video jobs, analysis results, chat
// sessions, and composite jobs. Each entity family is guarded by its own
// lock; there are no cross-entity transactions. Methods return snapshot
// copies, never live records, so readers cannot observe a half-applied
// mutation.
type Store struct {
	clock       Clock
	maxJobs     int
	maxSessions int
	onEvict     func(videoID string)

	jobsMu sync.RWMutex
	jobs   map[string]*VideoJob

	analysesMu sync.RWMutex
	analyses   map[analysisKey]*AnalysisResult

	sessionsMu sync.RWMutex
	sessions   map[string]*ChatSession

	compositesMu sync.RWMutex
	composites   map[string]*CompositeJob
}

type analysisKey struct {
	VideoID string
	Variant string
}

// New creates a Store with the given capacity bounds. Non-positive
// bounds fall back to the defaults.
func New(maxJobs, maxSessions int) *Store {
	return NewWithClock(maxJobs, maxSessions, realClock{})
}

// NewWithClock creates a Store with a custom clock (for testing).
func NewWithClock(maxJobs, maxSessions int, clock Clock) *Store {
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Store{
		clock:       clock,
		maxJobs:     maxJobs,
		maxSessions: maxSessions,
		jobs:        make(map[string]*VideoJob),
		analyses:    make(map[analysisKey]*AnalysisResult),
		sessions:    make(map[string]*ChatSession),
		composites:  make(map[string]*CompositeJob),
	}
}

// OnEvict registers a hook invoked with the video id whenever a job
// leaves the store (eviction, delete, clear), so externally held
// artifacts such as vector rows can be dropped alongside it. Must be set
// before the store is shared; at most one hook is supported.
func (s *Store) OnEvict(fn func(videoID string)) {
	s.onEvict = fn
}

// GetOrCreate returns the job for id, registering a new "processing"
// record when none exists. The second return reports whether this call
// created the record: at most one concurrent caller for a given id sees
// true, which is what keeps a video's pipeline from running twice.
func (s *Store) GetOrCreate(id, url string) (VideoJob, bool) {
	s.jobsMu.Lock()
	if j, ok := s.jobs[id]; ok {
		snap := *j
		s.jobsMu.Unlock()
		return snap, false
	}

	evicted := s.evictJobsLocked(1)
	j := &VideoJob{
		ID:        id,
		URL:       url,
		Status:    StatusProcessing,
		Metadata:  Metadata{VideoURL: url},
		CreatedAt: s.clock.Now(),
		done:      make(chan struct{}),
	}
	s.jobs[id] = j
	snap := *j
	s.jobsMu.Unlock()

	for _, ev := range evicted {
		s.dropJobArtifacts(ev)
	}
	return snap, true
}

// Get returns a snapshot of the job for id, or ErrNotFound.
func (s *Store) Get(id string) (VideoJob, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return VideoJob{}, ErrNotFound
	}
	return *j, nil
}

// SetMetadata attaches descriptive metadata to a job. Valid at any
// status; metadata arrives as soon as it is known, not at completion.
func (s *Store) SetMetadata(id string, md Metadata) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Metadata = md
	return nil
}

// Complete transitions a processing job to completed, attaching its
// transcript chunks and search index in the same critical section. A
// reader can never observe "completed" without the artifacts in place.
func (s *Store) Complete(id string, chunks []Chunk, idx Searcher) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.Status != StatusProcessing {
		return fmt.Errorf("job %s is already %s", id, j.Status)
	}
	j.Status = StatusCompleted
	j.Chunks = chunks
	j.Index = idx
	j.CompletedAt = s.clock.Now()
	close(j.done)
	return nil
}

// Fail transitions a processing job to error. The record is retained so
// pollers see the failure instead of "not found". Artifacts stay unset.
func (s *Store) Fail(id, message string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.Status != StatusProcessing {
		return fmt.Errorf("job %s is already %s", id, j.Status)
	}
	j.Status = StatusError
	j.Error = message
	j.CompletedAt = s.clock.Now()
	close(j.done)
	return nil
}

// Wait blocks until the job reaches a terminal status or ctx is done,
// then returns the job snapshot.
func (s *Store) Wait(ctx context.Context, id string) (VideoJob, error) {
	s.jobsMu.RLock()
	j, ok := s.jobs[id]
	if !ok {
		s.jobsMu.RUnlock()
		return VideoJob{}, ErrNotFound
	}
	done := j.done
	s.jobsMu.RUnlock()

	select {
	case <-done:
	case <-ctx.Done():
		return VideoJob{}, ctx.Err()
	}
	return s.Get(id)
}

// Delete removes a job and everything derived from it (analyses, chat
// sessions, externally held artifacts). Reports whether the job existed.
func (s *Store) Delete(id string) bool {
	s.jobsMu.Lock()
	j, ok := s.jobs[id]
	if ok {
		if j.Status == StatusProcessing {
			close(j.done) // wake waiters; they will see ErrNotFound
		}
		delete(s.jobs, id)
	}
	s.jobsMu.Unlock()
	if !ok {
		return false
	}
	s.dropJobArtifacts(id)
	return true
}

// ClearStats reports how many records a Clear removed.
type ClearStats struct {
	Jobs       int
	Analyses   int
	Sessions   int
	Composites int
}

// Clear removes all state: jobs, analyses, sessions, composite jobs.
// The eviction hook fires once per removed job.
func (s *Store) Clear() ClearStats {
	var stats ClearStats

	s.jobsMu.Lock()
	ids := make([]string, 0, len(s.jobs))
	for id, j := range s.jobs {
		if j.Status == StatusProcessing {
			close(j.done)
		}
		ids = append(ids, id)
	}
	stats.Jobs = len(s.jobs)
	s.jobs = make(map[string]*VideoJob)
	s.jobsMu.Unlock()

	s.analysesMu.Lock()
	stats.Analyses = len(s.analyses)
	s.analyses = make(map[analysisKey]*AnalysisResult)
	s.analysesMu.Unlock()

	s.sessionsMu.Lock()
	stats.Sessions = len(s.sessions)
	s.sessions = make(map[string]*ChatSession)
	s.sessionsMu.Unlock()

	s.compositesMu.Lock()
	stats.Composites = len(s.composites)
	s.composites = make(map[string]*CompositeJob)
	s.compositesMu.Unlock()

	if s.onEvict != nil {
		for _, id := range ids {
			s.onEvict(id)
		}
	}
	return stats
}

// List returns snapshots of all jobs, oldest first.
func (s *Store) List() []VideoJob {
	s.jobsMu.RLock()
	out := make([]VideoJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	s.jobsMu.RUnlock()

	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out
}

// Len reports the number of cached jobs.
func (s *Store) Len() int {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	return len(s.jobs)
}

// evictJobsLocked makes room for n new jobs, removing terminal jobs
// oldest-CompletedAt-first. In-flight jobs are never evicted, so the map
// can exceed maxJobs while everything in it is still processing. Returns
// the evicted ids; the caller must run artifact cleanup for them after
// releasing the lock.
func (s *Store) evictJobsLocked(n int) []string {
	if len(s.jobs)+n <= s.maxJobs {
		return nil
	}

	type victim struct {
		id          string
		completedAt time.Time
	}
	candidates := make([]victim, 0)
	for id, j := range s.jobs {
		if j.Terminal() {
			candidates = append(candidates, victim{id, j.CompletedAt})
		}
	}
	sort.Slice(candidates, func(i, k int) bool {
		return candidates[i].completedAt.Before(candidates[k].completedAt)
	})

	evicted := make([]string, 0)
	for _, v := range candidates {
		if len(s.jobs)+n <= s.maxJobs {
			break
		}
		delete(s.jobs, v.id)
		evicted = append(evicted, v.id)
	}
	return evicted
}

// dropJobArtifacts removes the derived state tied to a video id.
func (s *Store) dropJobArtifacts(videoID string) {
	s.DeleteAnalyses(videoID)
	s.DeleteSessions(videoID)
	if s.onEvict != nil {
		s.onEvict(videoID)
	}
}
