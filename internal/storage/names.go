package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/charlesng35/catalogadmin/pkg/crypto"
)

const maxNameLength = 100

// GenerateName derives "<unix-nanos>_<8 hex>_<sanitised original>".
func GenerateName(original string, now time.Time) (string, error) {
	suffix, err := crypto.RandomHex(4)
	if err != nil {
		return "", fmt.Errorf("storage: random suffix: %w", err)
	}
	return fmt.Sprintf("%d_%s_%s", now.UnixNano(), suffix, SanitizeName(original)), nil
}

// SanitizeName keeps the base name of original restricted to [a-z0-9._-].
func SanitizeName(original string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(original), "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(stem) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastDash = false
		case r == '.' || r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	name := strings.Trim(b.String(), "-.")
	if name == "" {
		name = "file"
	}
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}

	cleanExt := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) || r == '.' {
			return r
		}
		return -1
	}, ext)
	if cleanExt == "." {
		cleanExt = ""
	}
	return name + cleanExt
}
