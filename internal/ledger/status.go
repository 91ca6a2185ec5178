package ledger

import "strings"

// Flag marks one tag field as written to the media file
type Flag byte

const (
	FlagName    Flag = 'N' // title tag written
	FlagArtist  Flag = 'A' // artist tag written
	FlagPicture Flag = 'P' // cover art written
)

// Status is the set of tag-write flags completed for one song. The empty
// status means no gated field has been written yet. Flags are only ever
// added, never removed.
type Status string

// Has reports whether the flag is set
func (s Status) Has(f Flag) bool {
	return strings.IndexByte(string(s), byte(f)) >= 0
}

// With returns the status with the flag added. Adding a flag that is
// already set returns the status unchanged.
func (s Status) With(f Flag) Status {
	if s.Has(f) {
		return s
	}
	return s + Status(f)
}

// Union returns the status with every flag of other added
func (s Status) Union(other Status) Status {
	out := s
	for i := 0; i < len(other); i++ {
		out = out.With(Flag(other[i]))
	}
	return out
}

// Contains reports whether every flag of other is set in s
func (s Status) Contains(other Status) bool {
	for i := 0; i < len(other); i++ {
		if !s.Has(Flag(other[i])) {
			return false
		}
	}
	return true
}

// Complete reports whether all three gated fields have been written
func (s Status) Complete() bool {
	return s.Has(FlagName) && s.Has(FlagArtist) && s.Has(FlagPicture)
}
