package app

import (
	"strings"

	"github.com/charlesng35/catalogadmin/internal/auth"
	"github.com/charlesng35/catalogadmin/internal/database"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// SeedOptions converts the admin bootstrap settings into seed parameters.
func (c AuthConfig) SeedOptions() database.SeedOptions {
	return database.SeedOptions{
		AdminEmail:    strings.ToLower(strings.TrimSpace(c.Admin.Email)),
		AdminPassword: c.Admin.Password,
	}
}
