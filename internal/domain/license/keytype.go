// internal/domain/license/keytype.go
package license

import (
	"fmt"
	"strings"
	"time"
)

// KeyType is the duration tier of a license key
type KeyType string

const (
	KeyTypeDay   KeyType = "1day"
	KeyTypeWeek  KeyType = "1week"
	KeyTypeMonth KeyType = "1month"
)

// KeyTypes lists the tiers from shortest to longest
var KeyTypes = []KeyType{KeyTypeDay, KeyTypeWeek, KeyTypeMonth}

// ParseKeyType accepts the canonical names plus a few spellings the admin panel used
func ParseKeyType(raw string) (KeyType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1day", "day", "daily", "1d":
		return KeyTypeDay, nil
	case "1week", "week", "weekly", "1w":
		return KeyTypeWeek, nil
	case "1month", "month", "monthly", "1m":
		return KeyTypeMonth, nil
	default:
		return "", fmt.Errorf("unknown key type %q", raw)
	}
}

// IsValid reports whether k is one of the known tiers
func (k KeyType) IsValid() bool {
	return k.Rank() >= 0
}

// Duration returns how long a key of this type stays active
func (k KeyType) Duration() time.Duration {
	switch k {
	case KeyTypeDay:
		return 24 * time.Hour
	case KeyTypeWeek:
		return 7 * 24 * time.Hour
	case KeyTypeMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// ExpiresAt computes the expiry of a key activated at the given time
func (k KeyType) ExpiresAt(activatedAt time.Time) (time.Time, error) {
	d := k.Duration()
	if d == 0 {
		return time.Time{}, fmt.Errorf("unknown key type %q", string(k))
	}
	return activatedAt.Add(d), nil
}

// Rank orders the tiers; unknown types rank below all known ones
func (k KeyType) Rank() int {
	for i, kt := range KeyTypes {
		if kt == k {
			return i
		}
	}
	return -1
}
