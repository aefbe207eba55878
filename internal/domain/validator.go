package domain

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sort"
)

type Validator struct {
	ID        string
	PublicKey ed25519.PublicKey
}

// ValidatorSet is the trust root: an immutable snapshot of the validators
// allowed to vote and the approval threshold k. It is loaded once at
// startup; rotating validators means redeploying with a new snapshot.
type ValidatorSet struct {
	threshold int
	byID      map[string]Validator
}

func NewValidatorSet(threshold int, validators []Validator) (*ValidatorSet, error) {
	if len(validators) == 0 {
		return nil, errors.New("validator set is empty")
	}
	if threshold < 1 || threshold > len(validators) {
		return nil, fmt.Errorf("threshold %d out of range for %d validators", threshold, len(validators))
	}
	byID := make(map[string]Validator, len(validators))
	for _, v := range validators {
		if v.ID == "" {
			return nil, errors.New("validator id is required")
		}
		if len(v.PublicKey) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("validator %s: invalid ed25519 public key length %d", v.ID, len(v.PublicKey))
		}
		if _, ok := byID[v.ID]; ok {
			return nil, fmt.Errorf("duplicate validator id %s", v.ID)
		}
		key := append(ed25519.PublicKey(nil), v.PublicKey...)
		byID[v.ID] = Validator{ID: v.ID, PublicKey: key}
	}
	return &ValidatorSet{threshold: threshold, byID: byID}, nil
}

func (s *ValidatorSet) Threshold() int {
	return s.threshold
}

func (s *ValidatorSet) Size() int {
	return len(s.byID)
}

func (s *ValidatorSet) Get(id string) (Validator, bool) {
	v, ok := s.byID[id]
	return v, ok
}

func (s *ValidatorSet) IDs() []string {
	out := make([]string, 0, len(s.byID))
	for id := range s.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
