package mockapi

import (
	"fmt"

	"github.com/ludexapp/ludex/internal/catalog"
)

// Seed returns a small but multi-page demo catalog.
func Seed() Dataset {
	groups := []catalog.PlatformGroup{
		{ID: 1, Name: "PlayStation"},
		{ID: 2, Name: "Nintendo"},
		{ID: 3, Name: "Xbox"},
		{ID: 4, Name: "PC"},
	}
	platforms := []catalog.Platform{
		{ID: 10, Name: "PlayStation 5", ShortName: "PS5", PlatformGroupID: 1},
		{ID: 11, Name: "PlayStation 4", ShortName: "PS4", PlatformGroupID: 1},
		{ID: 12, Name: "Nintendo Switch", ShortName: "Switch", PlatformGroupID: 2},
		{ID: 13, Name: "Nintendo 64", ShortName: "N64", PlatformGroupID: 2},
		{ID: 14, Name: "Xbox Series X", ShortName: "XSX", PlatformGroupID: 3},
		{ID: 15, Name: "Windows", ShortName: "PC", PlatformGroupID: 4},
	}

	titles := []string{
		"Zelda", "Mario Kart", "Metroid", "Halo", "Forza", "Gran Turismo",
		"God of War", "Horizon", "Celeste", "Hades", "Portal", "Doom",
	}
	regions := []string{"eu", "us", "jp"}
	var releases []catalog.Release
	id := int64(100)
	for i, title := range titles {
		for j, p := range platforms {
			if (i+j)%2 == 1 {
				continue
			}
			releases = append(releases, catalog.Release{
				ID:          id,
				Name:        fmt.Sprintf("%s (%s)", title, p.ShortName),
				PlatformID:  p.ID,
				ReleaseDate: fmt.Sprintf("20%02d-%02d-15", 10+i, 1+j),
				Rating:      float64(40 + (i*7+j*11)%60),
				Region:      regions[(i+j)%len(regions)],
			})
			id++
		}
	}
	for i := range platforms {
		for _, r := range releases {
			if r.PlatformID == platforms[i].ID {
				platforms[i].TotalGames++
			}
		}
	}

	collections := []catalog.Collection{
		{ID: 500, Name: "Backlog", Description: "Still to play", Public: false},
		{ID: 501, Name: "Favourites", Public: true},
	}
	items := []catalog.CollectionItem{
		{ID: 600, CollectionID: 500, ReleaseID: releases[0].ID, AddedAt: "2026-01-05T10:00:00Z"},
		{ID: 601, CollectionID: 500, ReleaseID: releases[3].ID, AddedAt: "2026-02-11T18:30:00Z"},
		{ID: 602, CollectionID: 501, ReleaseID: releases[5].ID, Notes: "100% run", AddedAt: "2026-03-01T09:15:00Z"},
	}

	return Dataset{
		PlatformGroups: groups,
		Platforms:      platforms,
		Releases:       releases,
		Collections:    collections,
		Items:          items,
	}
}
