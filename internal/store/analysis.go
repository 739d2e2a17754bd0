package store

// UpdateAnalysis applies mutate to the analysis record for
// (videoID, variant), creating the record first if none exists. The
// mutation runs under the store lock, so facets written by successive
// calls accumulate without clobbering each other.
func (s *Store) UpdateAnalysis(videoID, variant string, mutate func(*AnalysisResult)) {
	s.analysesMu.Lock()
	defer s.analysesMu.Unlock()

	key := analysisKey{VideoID: videoID, Variant: variant}
	a, ok := s.analyses[key]
	if !ok {
		a = &AnalysisResult{
			VideoID:   videoID,
			Variant:   variant,
			CreatedAt: s.clock.Now(),
		}
		s.analyses[key] = a
	}
	mutate(a)
}

// GetAnalysis returns a copy of the analysis for (videoID, variant), or
// ErrNotFound when that variant was never produced. A missing variant is
// never substituted with another variant's result.
func (s *Store) GetAnalysis(videoID, variant string) (AnalysisResult, error) {
	s.analysesMu.RLock()
	defer s.analysesMu.RUnlock()

	a, ok := s.analyses[analysisKey{VideoID: videoID, Variant: variant}]
	if !ok {
		return AnalysisResult{}, ErrNotFound
	}
	out := *a
	out.Topics = append([]string(nil), a.Topics...)
	out.Questions = append([]string(nil), a.Questions...)
	return out, nil
}

// DeleteAnalyses removes every stored variant for a video and reports
// how many were removed.
func (s *Store) DeleteAnalyses(videoID string) int {
	s.analysesMu.Lock()
	defer s.analysesMu.Unlock()

	removed := 0
	for key := range s.analyses {
		if key.VideoID == videoID {
			delete(s.analyses, key)
			removed++
		}
	}
	return removed
}

// AnalysisCount reports the number of stored analysis records.
func (s *Store) AnalysisCount() int {
	s.analysesMu.RLock()
	defer s.analysesMu.RUnlock()
	return len(s.analyses)
}
