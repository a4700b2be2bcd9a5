package results

// Store accumulates the records of one batch. It is append-only and has a
// single writer: the owning batch's scheduler. The orchestrator reads it
// only after the batch has joined, so no locking is needed.
type Store struct {
	records []Record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Record appends one result record in arrival order.
func (s *Store) Record(r Record) {
	s.records = append(s.records, r)
}

// Records returns the accumulated records in append order. The returned
// slice is the store's backing array; callers must not mutate it.
func (s *Store) Records() []Record {
	return s.records
}

// Len returns the number of accumulated records.
func (s *Store) Len() int {
	return len(s.records)
}

// Primary returns the records that are mining results, excluding estimation
// records.
func (s *Store) Primary() []Record {
	primary := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if !r.Estimate {
			primary = append(primary, r)
		}
	}
	return primary
}
