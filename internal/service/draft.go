package service

import (
	"sync"
	"time"
)

// Phase is the current state of one registration conversation.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseFullName
	PhaseGroupNumber
	PhaseFaculty
	PhaseMobileNumber
	PhaseStudNumber
	PhaseFormEduc
	PhaseScholarship
	PhaseReviewing
	PhaseEditing
)

// phaseField maps a linear collection phase to the field it gathers.
var phaseField = map[Phase]Field{
	PhaseFullName:     FieldFullName,
	PhaseGroupNumber:  FieldGroupNumber,
	PhaseFaculty:      FieldFaculty,
	PhaseMobileNumber: FieldMobileNumber,
	PhaseStudNumber:   FieldStudNumber,
	PhaseFormEduc:     FieldFormEduc,
	PhaseScholarship:  FieldScholarship,
}

var nextPhase = map[Phase]Phase{
	PhaseFullName:     PhaseGroupNumber,
	PhaseGroupNumber:  PhaseFaculty,
	PhaseFaculty:      PhaseMobileNumber,
	PhaseMobileNumber: PhaseStudNumber,
	PhaseStudNumber:   PhaseFormEduc,
	PhaseFormEduc:     PhaseScholarship,
	PhaseScholarship:  PhaseReviewing,
}

// Draft is the in-progress registration data for one user.
type Draft struct {
	Phase        Phase
	Fields       map[Field]string
	EditingField Field
	UpdatedAt    time.Time
}

func NewDraft() *Draft {
	return &Draft{Phase: PhaseFullName, Fields: make(map[Field]string)}
}

// DraftStore keeps at most one draft per user.
type DraftStore interface {
	Get(userID int64) (*Draft, bool)
	Put(userID int64, draft *Draft)
	Clear(userID int64)
	Sweep(maxAge time.Duration) int
}

// MemoryDraftStore is the single-process draft store. Drafts do not survive
// a restart; the user re-enters the flow with /reg.
type MemoryDraftStore struct {
	mu     sync.Mutex
	drafts map[int64]*Draft
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[int64]*Draft)}
}

func (s *MemoryDraftStore) Get(userID int64) (*Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[userID]
	return draft, ok
}

func (s *MemoryDraftStore) Put(userID int64, draft *Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft.UpdatedAt = time.Now()
	s.drafts[userID] = draft
}

func (s *MemoryDraftStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, userID)
}

// Sweep drops drafts untouched for longer than maxAge and reports how many.
func (s *MemoryDraftStore) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, draft := range s.drafts {
		if draft.UpdatedAt.Before(cutoff) {
			delete(s.drafts, id)
			removed++
		}
	}
	return removed
}
