package riot

import (
	"errors"
	"fmt"
	"strings"
)

// HandleSeparator splits the display name from the tag in a Riot ID.
const HandleSeparator = "#"

// ErrMalformedHandle is returned when a Riot ID string cannot be parsed.
// Wrapped errors name the specific violated constraint.
var ErrMalformedHandle = errors.New("malformed riot id")

// Handle is a player identity as entered by a human: a display name, a tag,
// and the region the player plays on.
type Handle struct {
	GameName string
	Tag      string
	Region   string
}

// ParseHandle parses a "GameName#TAG" string and a region code into a Handle.
//
// The handle must contain exactly one separator with non-empty text on both
// sides; surrounding whitespace is trimmed. The region is lowercased but not
// validated here: unrecognized regions still route (see ClusterForRegion).
func ParseHandle(riotID, region string) (Handle, error) {
	riotID = strings.TrimSpace(riotID)

	if strings.Count(riotID, HandleSeparator) != 1 {
		return Handle{}, fmt.Errorf("%w: expected exactly one %q separator in %q",
			ErrMalformedHandle, HandleSeparator, riotID)
	}

	name, tag, _ := strings.Cut(riotID, HandleSeparator)

	name = strings.TrimSpace(name)
	tag = strings.TrimSpace(tag)

	if name == "" {
		return Handle{}, fmt.Errorf("%w: game name is empty", ErrMalformedHandle)
	}

	if tag == "" {
		return Handle{}, fmt.Errorf("%w: tag is empty", ErrMalformedHandle)
	}

	return Handle{
		GameName: name,
		Tag:      tag,
		Region:   strings.ToLower(strings.TrimSpace(region)),
	}, nil
}

// String renders the handle in its canonical "GameName#TAG" form.
func (h Handle) String() string {
	return h.GameName + HandleSeparator + h.Tag
}
