package instagram

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/feature"
)

// defaultPicMarker appears in the URL of the placeholder avatar.
const defaultPicMarker = "blank"

// Signal computes all eleven features of a profile. Digit ratios use the raw
// identifier and the raw display name.
func (p *Profile) Signal(identifier string) feature.Signal {
	return feature.Signal{
		Followers:          p.Followers,
		Followees:          p.Followees,
		Posts:              p.Posts,
		IsBusiness:         feature.BoolInt(p.IsBusiness),
		BioLength:          utf8.RuneCountInString(p.Biography),
		ExternalURL:        feature.BoolInt(p.ExternalURL != ""),
		HasProfilePic:      feature.BoolInt(p.ProfilePicURL != "" && !strings.Contains(p.ProfilePicURL, defaultPicMarker)),
		FullnameWords:      feature.WordCount(p.FullName),
		NameEqualsUsername: feature.NameEqualsUsername(p.FullName, identifier),
		DigitRatioUsername: feature.DigitRatio(identifier),
		DigitRatioFullname: feature.DigitRatio(p.FullName),
	}
}

// FetchFeatures looks up the account named by identifier and maps the answer
// to an outcome. An explicit "does not exist" answer is NotFound; every other
// error is a Failure. The username features use identifier as given.
func (c *Client) FetchFeatures(ctx context.Context, identifier string) feature.Outcome {
	p, err := c.Lookup(ctx, Username(identifier))
	if err != nil {
		if IsNotExist(err) {
			return feature.NotFound()
		}
		return feature.Failure(err)
	}
	return feature.Success(p.Signal(identifier))
}

// IsNotExist reports whether err says the account does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, feature.ErrProfileNotFound) || strings.Contains(err.Error(), "does not exist")
}
