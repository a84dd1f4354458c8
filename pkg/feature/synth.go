package feature

// Origin says which stage produced the winning signal.
type Origin int

// Signal origins.
const (
	OriginPrimary Origin = iota
	OriginFallback
)

// Synthesize builds the canonical vector from the winning signal.
//
// A primary signal already carries every field and passes through unchanged.
// A fallback signal contributes only its bio length; the username digit ratio
// needs no network data and is always computed from the identifier.
func Synthesize(identifier string, origin Origin, sig Signal) Vector {
	if origin == OriginPrimary {
		return Vector(sig)
	}
	return Vector{
		BioLength:          sig.BioLength,
		DigitRatioUsername: DigitRatio(identifier),
	}
}

// Informative reports whether any of the nine informative fields is nonzero.
// The two digit ratios are ignored: they are derived from strings that exist
// whether or not the account does.
func (v Vector) Informative() bool {
	for _, f := range [...]int{
		v.Followers,
		v.Followees,
		v.Posts,
		v.IsBusiness,
		v.BioLength,
		v.ExternalURL,
		v.HasProfilePic,
		v.FullnameWords,
		v.NameEqualsUsername,
	} {
		if f != 0 {
			return true
		}
	}
	return false
}

// Classify applies the existence heuristic. A vector with no informative
// signal is reported as a nonexistent account.
//
// This misreports a real account that has no bio, followers, posts, name or
// picture. That is an accepted limitation of the heuristic.
func Classify(v Vector) Result {
	if !v.Informative() {
		return Missing()
	}
	return Found(v)
}
