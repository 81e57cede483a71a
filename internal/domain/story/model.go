package story

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Origin tracks where a story came from and whether the remote source
// has acknowledged it.
type Origin string

const (
	// OriginRemoteCached — fetched from the remote source and cached locally.
	OriginRemoteCached Origin = "remote-cached"
	// OriginLocalPending — created offline, not yet acknowledged by the remote source.
	OriginLocalPending Origin = "local-pending"
	// OriginLocalSynced — created locally and confirmed by the remote source.
	OriginLocalSynced Origin = "local-synced"
)

// Story is a user-submitted report with description, optional geolocation,
// photo reference and provenance.
type Story struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	Origin         Origin    `json:"origin,omitempty"`
	CachedAt       time.Time `json:"cachedAt,omitempty"`
	HasFullDetails bool      `json:"hasFullDetails,omitempty"`
}

// UnmarshalJSON accepts both string and numeric ids: remote ids may be
// numbers, URL parameters are always strings.
func (s *Story) UnmarshalJSON(data []byte) error {
	type alias Story
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	// Числовые id декодируем как json.Number, чтобы не терять точность
	// на больших целых значениях.
	switch {
	case len(aux.ID) == 0 || string(aux.ID) == "null":
		s.ID = ""
	case aux.ID[0] == '"':
		var id string
		if err := json.Unmarshal(aux.ID, &id); err != nil {
			return err
		}
		s.ID = id
	default:
		var id json.Number
		if err := json.Unmarshal(aux.ID, &id); err != nil {
			return err
		}
		s.ID = CanonicalID(id)
	}
	return nil
}

// HasLocation reports whether the story carries a geolocation pair.
// Lat and Lon are either both set or both nil.
func (s *Story) HasLocation() bool {
	return s.Lat != nil && s.Lon != nil
}

// IsLocal reports whether the story was created on this client.
func (s *Story) IsLocal() bool {
	return s.Origin == OriginLocalPending || s.Origin == OriginLocalSynced
}

// CanonicalID converts an id supplied as either string or number into its
// canonical string form. All id comparison happens on this form, so lookups
// behave identically for 42 and "42".
func CanonicalID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case float64:
		// JSON numbers decode as float64; integral values must not grow
		// a trailing ".0".
		if id == math.Trunc(id) && math.Abs(id) < 1<<53 {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}

// SortByCreatedDesc orders stories newest first, the required presentation
// order. The store itself returns rows unordered.
func SortByCreatedDesc(stories []Story) {
	sort.SliceStable(stories, func(i, j int) bool {
		return stories[i].CreatedAt.After(stories[j].CreatedAt)
	})
}

// NewStory is the input for creating a report.
type NewStory struct {
	Description string   `json:"description"`
	PhotoData   []byte   `json:"photoData,omitempty"`
	PhotoName   string   `json:"photoName,omitempty"`
	PhotoType   string   `json:"photoType,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}

// EncodePhoto converts raw photo bytes into a data-URI string safe to keep
// in the store: file handles are not durable across store reopen.
func EncodePhoto(data []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodePhoto reverses EncodePhoto. Returns the raw bytes and mime type.
func DecodePhoto(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data URI")
	}
	mimeType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return nil, "", fmt.Errorf("unsupported data URI encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 payload: %w", err)
	}
	return data, mimeType, nil
}

// IsDataURI reports whether the photo reference is an embedded encoded blob
// rather than a remote URL.
func IsDataURI(uri string) bool {
	return strings.HasPrefix(uri, "data:")
}

// QueueEntryType names a kind of pending mutation.
type QueueEntryType string

// EntryCreateStory is currently the only queued mutation kind.
const EntryCreateStory QueueEntryType = "create-story"

// QueueEntry is a pending mutation awaiting network availability.
type QueueEntry struct {
	ID         int64          `json:"id"`
	EntryType  QueueEntryType `json:"entryType"`
	StoryID    string         `json:"storyId"`
	Payload    NewStory       `json:"payload"`
	Token      string         `json:"token"`
	EnqueuedAt time.Time      `json:"enqueuedAt"`
}
