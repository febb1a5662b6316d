package poll

import (
	"time"

	"github.com/tokenized/voting-contract/internal/platform/state"
	"github.com/tokenized/voting-contract/internal/rejections"
)

// Store holds the polls of a contract indexed by name, along with the set of
// voters of each poll.
type Store struct {
	contract *state.Contract
	index    map[string]int
	voted    map[string]map[string]struct{}
}

// NewStore indexes the polls already recorded on the contract.
func NewStore(c *state.Contract) *Store {
	result := &Store{
		contract: c,
		index:    make(map[string]int, len(c.Polls)),
		voted:    make(map[string]map[string]struct{}, len(c.Polls)),
	}

	for i, p := range c.Polls {
		result.index[p.Name] = i
		result.voted[p.Name] = votersOf(p)
	}

	return result
}

func votersOf(p *state.Poll) map[string]struct{} {
	result := make(map[string]struct{}, len(p.Voters))
	for _, v := range p.Voters {
		result[v] = struct{}{}
	}
	return result
}

// Template is the arguments of a new poll.
type Template struct {
	Name       string
	Candidates []string
	Wallets    []string
	CreatedAt  time.Time
	EndTime    time.Time
	AllowEmpty bool
}

// Validate checks the template without looking at existing polls.
func (t *Template) Validate() error {
	if len(t.Name) == 0 {
		return rejections.ErrEmptyPollName
	}
	if len(t.Candidates) != len(t.Wallets) {
		return rejections.ErrCandidateMismatch
	}
	if len(t.Candidates) == 0 && !t.AllowEmpty {
		return rejections.ErrNoCandidates
	}
	for _, name := range t.Candidates {
		if len(name) == 0 {
			return rejections.ErrEmptyCandidate
		}
	}

	return nil
}

// Check returns an error if the template cannot be added to the store.
func (s *Store) Check(t *Template) error {
	if _, exists := s.index[t.Name]; exists {
		return rejections.ErrPollExists
	}

	return t.Validate()
}

// Create adds an open poll built from the template.
func (s *Store) Create(t *Template) (*state.Poll, error) {
	if err := s.Check(t); err != nil {
		return nil, err
	}

	p := &state.Poll{
		Name:       t.Name,
		Candidates: make([]*state.Candidate, len(t.Candidates)),
		CreatedAt:  t.CreatedAt,
		EndTime:    t.EndTime,
		Status:     state.StatusOpen,
		Winner:     -1,
	}
	for i, name := range t.Candidates {
		p.Candidates[i] = &state.Candidate{
			Name:          name,
			PayoutAddress: t.Wallets[i],
		}
	}

	s.index[p.Name] = len(s.contract.Polls)
	s.voted[p.Name] = make(map[string]struct{})
	s.contract.Polls = append(s.contract.Polls, p)
	return p, nil
}

// Find returns the poll with the name.
func (s *Store) Find(name string) (*state.Poll, error) {
	i, exists := s.index[name]
	if !exists {
		return nil, rejections.ErrPollNotFound
	}

	return s.contract.Polls[i], nil
}

// Replace swaps in an updated copy of an existing poll.
func (s *Store) Replace(p *state.Poll) error {
	i, exists := s.index[p.Name]
	if !exists {
		return rejections.ErrPollNotFound
	}

	s.contract.Polls[i] = p
	if len(s.voted[p.Name]) != len(p.Voters) {
		s.voted[p.Name] = votersOf(p)
	}
	return nil
}

// HasVoted returns true if the address already voted in the named poll.
func (s *Store) HasVoted(name, voter string) bool {
	_, exists := s.voted[name][voter]
	return exists
}

// RecordVote casts a checked vote on a poll of the store in place.
func (s *Store) RecordVote(p *state.Poll, voter string, candidate int, payment uint64) {
	CastVote(p, voter, candidate, payment)

	set, exists := s.voted[p.Name]
	if !exists {
		set = make(map[string]struct{})
		s.voted[p.Name] = set
	}
	set[voter] = struct{}{}
}

// List returns the poll names in creation order.
func (s *Store) List() []string {
	result := make([]string, len(s.contract.Polls))
	for i, p := range s.contract.Polls {
		result[i] = p.Name
	}
	return result
}

// All returns the polls in creation order.
func (s *Store) All() []*state.Poll {
	result := make([]*state.Poll, len(s.contract.Polls))
	copy(result, s.contract.Polls)
	return result
}

// Candidates returns the candidate names of a poll in index order.
func (s *Store) Candidates(name string) ([]string, error) {
	p, err := s.Find(name)
	if err != nil {
		return nil, err
	}

	result := make([]string, len(p.Candidates))
	for i, c := range p.Candidates {
		result[i] = c.Name
	}
	return result, nil
}
