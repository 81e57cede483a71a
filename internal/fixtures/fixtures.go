// Package fixtures ships a small set of demo stories for first-run and
// offline demos. Seeding is always an explicit action: the store is never
// populated implicitly just because it is empty.
package fixtures

import (
	"context"
	"fmt"
	"time"

	"citycare/internal/app/client"
	"citycare/internal/domain/story"
)

func ptr(v float64) *float64 { return &v }

// SampleStories returns the built-in demo set. CreatedAt timestamps are
// spread backwards from now so the list renders in a stable order.
func SampleStories() []story.Story {
	now := time.Now().UTC()

	return []story.Story{
		{
			ID:          "sample-1",
			Name:        "Dimas",
			Description: "Jalan berlubang di depan pasar sudah dua minggu belum diperbaiki",
			PhotoURL:    "https://story-api.dicoding.dev/images/stories/photos-sample-1.jpg",
			Lat:         ptr(-6.2088),
			Lon:         ptr(106.8456),
			CreatedAt:   now.Add(-1 * time.Hour),
		},
		{
			ID:          "sample-2",
			Name:        "Sari",
			Description: "Lampu penerangan jalan mati di sepanjang gang kelurahan",
			PhotoURL:    "https://story-api.dicoding.dev/images/stories/photos-sample-2.jpg",
			Lat:         ptr(-6.9147),
			Lon:         ptr(107.6098),
			CreatedAt:   now.Add(-2 * time.Hour),
		},
		{
			ID:          "sample-3",
			Name:        "Budi",
			Description: "Tumpukan sampah menumpuk di pinggir sungai dekat jembatan",
			PhotoURL:    "https://story-api.dicoding.dev/images/stories/photos-sample-3.jpg",
			CreatedAt:   now.Add(-3 * time.Hour),
		},
		{
			ID:          "sample-4",
			Name:        "Ayu",
			Description: "Trotoar rusak dan membahayakan pejalan kaki di depan sekolah",
			PhotoURL:    "https://story-api.dicoding.dev/images/stories/photos-sample-4.jpg",
			Lat:         ptr(-7.2575),
			Lon:         ptr(112.7521),
			CreatedAt:   now.Add(-4 * time.Hour),
		},
		{
			ID:          "sample-5",
			Name:        "Rudi",
			Description: "Saluran air tersumbat menyebabkan genangan setiap hujan",
			PhotoURL:    "https://story-api.dicoding.dev/images/stories/photos-sample-5.jpg",
			CreatedAt:   now.Add(-5 * time.Hour),
		},
	}
}

// Seed writes the demo set into the store as remote-cached records.
// Existing records with the same ids are merged, not duplicated.
func Seed(ctx context.Context, storage client.Storage) (int, error) {
	stories := SampleStories()
	for _, st := range stories {
		st.Origin = story.OriginRemoteCached
		if err := storage.Put(ctx, st); err != nil {
			return 0, fmt.Errorf("seeding %s: %w", st.ID, err)
		}
	}
	return len(stories), nil
}
