package esu

import "strings"

// Product is a read-only snapshot of one licensing product record. Records
// are owned by the OS licensing service; this tool only observes them, before
// and after remediation.
type Product struct {
	Name              string
	ActivationID      string
	Status            StatusCode
	PartialProductKey string
}

// Licensed reports whether this record is in the fully-licensed state.
func (p Product) Licensed() bool {
	return p.Status == StatusLicensed
}

// HasKeyMaterial reports whether a product key fragment is installed for this
// record. The licensing service retains the last five characters of any
// installed key; an empty fragment means no key was ever installed.
func (p Product) HasKeyMaterial() bool {
	return strings.TrimSpace(p.PartialProductKey) != ""
}

// Filter reduces a raw inventory to the ESU records this tool cares about:
// records with key material installed whose activation identifier is one of
// the known ESU identifiers. GUID comparison is case-insensitive. An empty
// result is a valid outcome, not an error.
func Filter(products []Product, reverseIDs map[string]string) []Product {
	matched := make([]Product, 0, len(products))
	for _, p := range products {
		if !p.HasKeyMaterial() {
			continue
		}
		if _, known := reverseIDs[strings.ToLower(p.ActivationID)]; !known {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

// Compliant reports whether at least one record is fully licensed. The empty
// list is non-compliant.
func Compliant(products []Product) bool {
	for _, p := range products {
		if p.Licensed() {
			return true
		}
	}
	return false
}

// YearFor resolves an activation identifier to its configured year label
// using the reverse identifier→year map. Returns "" for unknown identifiers.
func YearFor(reverseIDs map[string]string, activationID string) string {
	return reverseIDs[strings.ToLower(activationID)]
}
