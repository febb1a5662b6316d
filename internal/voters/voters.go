package voters

import (
	"github.com/tokenized/voting-contract/internal/platform/state"
)

// Registry is the allow-list of addresses permitted to vote. It only grows.
type Registry struct {
	contract *state.Contract
	index    map[string]struct{}
}

// NewRegistry indexes the voters already recorded on the contract.
func NewRegistry(c *state.Contract) *Registry {
	result := &Registry{
		contract: c,
		index:    make(map[string]struct{}, len(c.Voters)),
	}

	for _, address := range c.Voters {
		result.index[address] = struct{}{}
	}

	return result
}

// Add admits an address. It returns false when the address was already
// registered, in which case nothing changes.
func (r *Registry) Add(address string) bool {
	if _, exists := r.index[address]; exists {
		return false
	}

	r.index[address] = struct{}{}
	r.contract.Voters = append(r.contract.Voters, address)
	return true
}

// Contains returns true when the address is registered.
func (r *Registry) Contains(address string) bool {
	_, exists := r.index[address]
	return exists
}

// Len returns the number of registered voters.
func (r *Registry) Len() int {
	return len(r.contract.Voters)
}

// List returns the registered voters in admission order.
func (r *Registry) List() []string {
	result := make([]string, len(r.contract.Voters))
	copy(result, r.contract.Voters)
	return result
}
