package story

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalID(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{name: "string", input: "story-abc", expected: "story-abc"},
		{name: "numeric string", input: "42", expected: "42"},
		{name: "int", input: 42, expected: "42"},
		{name: "int64", input: int64(9000000001), expected: "9000000001"},
		{name: "float64 integral", input: float64(42), expected: "42"},
		{name: "float64 fractional", input: 4.5, expected: "4.5"},
		{name: "json number", input: json.Number("17"), expected: "17"},
		{name: "nil", input: nil, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalID(tt.input))
		})
	}
}

func TestCanonicalID_NumberAndStringAgree(t *testing.T) {
	// A remote id decoded from JSON and the same id taken from a URL
	// parameter must resolve to one canonical form.
	assert.Equal(t, CanonicalID("42"), CanonicalID(float64(42)))
	assert.Equal(t, CanonicalID("42"), CanonicalID(42))
}

func TestStory_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		expectedID string
	}{
		{
			name:       "string id",
			payload:    `{"id":"story-1","description":"d","createdAt":"2024-06-05T08:30:00Z"}`,
			expectedID: "story-1",
		},
		{
			name:       "numeric id",
			payload:    `{"id":42,"description":"d","createdAt":"2024-06-05T08:30:00Z"}`,
			expectedID: "42",
		},
		{
			// id above 2^53 must survive decoding digit-for-digit
			name:       "big integer id",
			payload:    `{"id":9007199254740993,"description":"d","createdAt":"2024-06-05T08:30:00Z"}`,
			expectedID: "9007199254740993",
		},
		{
			name:       "null id",
			payload:    `{"id":null,"description":"d","createdAt":"2024-06-05T08:30:00Z"}`,
			expectedID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Story
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &s))
			assert.Equal(t, tt.expectedID, s.ID)
			assert.Equal(t, "d", s.Description)
			assert.Equal(t, time.Date(2024, 6, 5, 8, 30, 0, 0, time.UTC), s.CreatedAt)
		})
	}
}

func TestStory_HasLocation(t *testing.T) {
	lat, lon := -6.2088, 106.8456

	s := Story{}
	assert.False(t, s.HasLocation())

	s.Lat = &lat
	s.Lon = &lon
	assert.True(t, s.HasLocation())
}

func TestEncodeDecodePhoto(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}

	uri := EncodePhoto(raw, "image/jpeg")
	require.True(t, IsDataURI(uri))

	data, mimeType, err := DecodePhoto(uri)
	require.NoError(t, err)
	assert.Equal(t, raw, data)
	assert.Equal(t, "image/jpeg", mimeType)
}

func TestDecodePhoto_RejectsPlainURL(t *testing.T) {
	_, _, err := DecodePhoto("https://example.com/photo.jpg")
	assert.Error(t, err)
}

func TestSortByCreatedDesc(t *testing.T) {
	base := time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC)
	stories := []Story{
		{ID: "old", CreatedAt: base.Add(-2 * time.Hour)},
		{ID: "new", CreatedAt: base},
		{ID: "mid", CreatedAt: base.Add(-time.Hour)},
	}

	SortByCreatedDesc(stories)

	assert.Equal(t, "new", stories[0].ID)
	assert.Equal(t, "mid", stories[1].ID)
	assert.Equal(t, "old", stories[2].ID)
}
