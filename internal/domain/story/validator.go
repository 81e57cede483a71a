package story

import (
	"fmt"
	"strings"
)

const (
	MaxDescriptionLen = 4000
	// DefaultMaxPhotoBytes matches the remote source's documented upload cap.
	DefaultMaxPhotoBytes = 1 << 20
)

// Validator checks report input before any store or network call is attempted.
type Validator struct {
	maxPhotoBytes int64
}

// NewValidator creates a validator with the given photo size ceiling.
// A non-positive ceiling falls back to DefaultMaxPhotoBytes.
func NewValidator(maxPhotoBytes int64) *Validator {
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = DefaultMaxPhotoBytes
	}
	return &Validator{maxPhotoBytes: maxPhotoBytes}
}

// ValidateNew validates input for story creation.
func (v *Validator) ValidateNew(n NewStory) error {
	if strings.TrimSpace(n.Description) == "" {
		return &ValidationError{Field: "description", Message: "description is required"}
	}

	if len(n.Description) > MaxDescriptionLen {
		return &ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("description must be at most %d characters", MaxDescriptionLen),
		}
	}

	if len(n.PhotoData) == 0 {
		return &ValidationError{Field: "photo", Message: "photo is required"}
	}

	if int64(len(n.PhotoData)) > v.maxPhotoBytes {
		return &ValidationError{
			Field:   "photo",
			Message: fmt.Sprintf("photo exceeds the %d byte limit", v.maxPhotoBytes),
		}
	}

	// A geolocation pair is either fully present or fully absent.
	if (n.Lat == nil) != (n.Lon == nil) {
		return &ValidationError{Field: "location", Message: "latitude and longitude must be set together"}
	}

	if n.Lat != nil {
		if *n.Lat < -90 || *n.Lat > 90 {
			return &ValidationError{Field: "location", Message: "latitude must be between -90 and 90"}
		}
		if *n.Lon < -180 || *n.Lon > 180 {
			return &ValidationError{Field: "location", Message: "longitude must be between -180 and 180"}
		}
	}

	return nil
}
