package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/catalogadmin/pkg/crypto"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults fills settings the server cannot start without. The
// returned set names each generated key; values are never reported.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	generated := map[string]bool{}

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}
	if !cfg.Storage.UsesGCS() && strings.TrimSpace(cfg.Storage.PublicURL) == "" {
		cfg.Storage.PublicURL = "/uploads"
		generated["storage.public_url"] = true
	}
	if strings.TrimSpace(cfg.Backup.Prefix) == "" {
		cfg.Backup.Prefix = "catalog"
		generated["backup.prefix"] = true
	}
	return generated, nil
}
