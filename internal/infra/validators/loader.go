package validators

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/BurntSushi/toml"

	"quorumd/internal/domain"
)

type snapshotFile struct {
	Threshold  int              `toml:"threshold"`
	Validators []validatorEntry `toml:"validator"`
}

type validatorEntry struct {
	ID        string `toml:"id"`
	PublicKey string `toml:"public_key"`
}

// LoadFile reads the validator trust-root snapshot:
//
//	threshold = 2
//
//	[[validator]]
//	id = "val-1"
//	public_key = "<base64 ed25519 key>"
func LoadFile(path string) (*domain.ValidatorSet, error) {
	var file snapshotFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("parse validator snapshot %s: %w", path, err)
	}
	validators := make([]domain.Validator, 0, len(file.Validators))
	for _, entry := range file.Validators {
		key, err := base64.StdEncoding.DecodeString(entry.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("validator %s: decode public key: %w", entry.ID, err)
		}
		validators = append(validators, domain.Validator{
			ID:        entry.ID,
			PublicKey: ed25519.PublicKey(key),
		})
	}
	set, err := domain.NewValidatorSet(file.Threshold, validators)
	if err != nil {
		return nil, fmt.Errorf("validator snapshot %s: %w", path, err)
	}
	return set, nil
}
