package esu

import (
	"regexp"
	"strings"
)

// KeyEntry pairs a year label with its volume-license product key.
type KeyEntry struct {
	Year string
	Key  string
}

// KeySet is the ordered year→key configuration. Order is remediation
// priority order: earlier entries are tried first.
type KeySet []KeyEntry

// Lookup returns the key configured for a year label.
func (ks KeySet) Lookup(year string) (string, bool) {
	for _, e := range ks {
		if e.Year == year {
			return e.Key, true
		}
	}
	return "", false
}

// Years returns the configured year labels in priority order.
func (ks KeySet) Years() []string {
	years := make([]string, len(ks))
	for i, e := range ks {
		years[i] = e.Year
	}
	return years
}

// SelectTarget picks the remediation target: the first configured year (in
// key-set order) whose activation identifier has no fully-licensed inventory
// record. A year whose record is stuck in a grace or unlicensed state counts
// as not licensed and is selected. If every configured year turns out to be
// licensed the first configured entry is returned as a fallback, so callers
// always get a target from a non-empty key set.
func SelectTarget(keys KeySet, activationIDs map[string]string, products []Product) (KeyEntry, bool) {
	if len(keys) == 0 {
		return KeyEntry{}, false
	}

	licensed := make(map[string]bool, len(products))
	for _, p := range products {
		if p.Licensed() {
			licensed[strings.ToLower(p.ActivationID)] = true
		}
	}

	for _, e := range keys {
		id := strings.ToLower(activationIDs[e.Year])
		if id == "" || !licensed[id] {
			return e, true
		}
	}

	return keys[0], true
}

// placeholderKey matches the unfilled template shipped in the default
// configuration: five dash-separated groups, each one letter from B/C/D/E
// repeated five times (for example BBBBB-CCCCC-DDDDD-EEEEE-BBBBB).
var placeholderKey = regexp.MustCompile(`^(?:B{5}|C{5}|D{5}|E{5})(?:-(?:B{5}|C{5}|D{5}|E{5})){4}$`)

// ValidateKey rejects keys that must never reach the license-management
// tool: empty values and unfilled configuration placeholders. Any other
// non-empty string is accepted; the licensing service is the authority on
// whether a key is actually installable.
func ValidateKey(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return ErrKeyMissing
	}
	if placeholderKey.MatchString(strings.ToUpper(trimmed)) {
		return ErrKeyPlaceholder
	}
	return nil
}

// MaskKey renders a product key for logging, keeping only the last
// five-character group visible (the same fragment the licensing service
// itself reports).
func MaskKey(key string) string {
	key = strings.TrimSpace(key)
	groups := strings.Split(key, "-")
	if len(groups) < 2 {
		return strings.Repeat("*", len(key))
	}
	for i := 0; i < len(groups)-1; i++ {
		groups[i] = strings.Repeat("*", len(groups[i]))
	}
	return strings.Join(groups, "-")
}
