package edition

import "strings"

// Tier is the strictness level of an edition-equivalence match. Lower is
// stricter.
type Tier int

const (
	// TierExact: identical media, format and encoding on the same edition.
	TierExact Tier = iota
	// TierCompatible: same media and format, encode differs within the same
	// lossless class (e.g. FLAC 16bit vs FLAC 24bit, V0 vs 320).
	TierCompatible
	// TierRelease: same underlying work under a different technical
	// presentation (shared media or shared format only).
	TierRelease
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierCompatible:
		return "compatible"
	case TierRelease:
		return "release"
	default:
		return "unknown"
	}
}

// Detail returns a short human-readable explanation for a match at this tier.
func (t Tier) Detail() string {
	switch t {
	case TierExact:
		return "identical media/format/encoding on the same edition"
	case TierCompatible:
		return "same media and format, differing encode"
	case TierRelease:
		return "same work, different technical presentation"
	default:
		return "no match"
	}
}

// Compare evaluates candidate b against source a and returns the best
// (lowest) tier b qualifies for. The bool result is false when b fails every
// tier.
func Compare(a, b *Descriptor) (Tier, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	sameMedia := strings.EqualFold(a.Media, b.Media)
	sameFormat := strings.EqualFold(a.Format, b.Format)
	sameEncoding := strings.EqualFold(a.Encoding, b.Encoding)

	if sameMedia && sameFormat && sameEncoding && a.editionKey() == b.editionKey() {
		return TierExact, true
	}

	if sameMedia && sameFormat && a.IsLossless() == b.IsLossless() && yearsCompatible(a.Year, b.Year) {
		return TierCompatible, true
	}

	if (sameMedia && a.Media != "") || (sameFormat && a.Format != "") {
		return TierRelease, true
	}

	return 0, false
}

// yearsCompatible treats an unset year on either side as compatible: many
// original pressings carry no remaster year at all.
func yearsCompatible(a, b int) bool {
	return a == 0 || b == 0 || a == b
}
