// Package episode holds the episode entity, its domain errors and the
// repository that fetches episodes under a cache policy.
package episode

import (
	"fmt"
	"sort"
	"time"

	"github.com/illmade-knight/go-rickverse/pkg/rickapi"
)

// airDateLayout matches the API's "December 2, 2013".
const airDateLayout = "January 2, 2006"

// Episode is the domain representation of an episode resource.
type Episode struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	AirDate string `json:"airDate"`
	// AiredOn is zero when AirDate could not be parsed.
	AiredOn time.Time `json:"airedOn"`
	// Code is the production code, e.g. "S01E02".
	Code         string    `json:"code"`
	Season       int       `json:"season"`
	Number       int       `json:"number"`
	CharacterIDs []int     `json:"characterIds"`
	Created      time.Time `json:"created"`
}

// Page is one page of the episode list.
type Page struct {
	Number     int       `json:"page"`
	TotalPages int       `json:"totalPages"`
	TotalCount int       `json:"totalCount"`
	HasNext    bool      `json:"hasNext"`
	Episodes   []Episode `json:"episodes"`
}

// FromDTO maps a wire episode to the domain entity.
func FromDTO(dto rickapi.EpisodeDTO) Episode {
	airedOn, _ := time.Parse(airDateLayout, dto.AirDate)
	created, _ := time.Parse(time.RFC3339, dto.Created)
	season, number := parseCode(dto.Episode)
	return Episode{
		ID:           dto.ID,
		Name:         dto.Name,
		AirDate:      dto.AirDate,
		AiredOn:      airedOn,
		Code:         dto.Episode,
		Season:       season,
		Number:       number,
		CharacterIDs: rickapi.IDsFromURLs(dto.Characters),
		Created:      created,
	}
}

// ListFromDTOs maps a batch of episodes, ordered by id.
func ListFromDTOs(dtos []rickapi.EpisodeDTO) []Episode {
	episodes := make([]Episode, 0, len(dtos))
	for _, dto := range dtos {
		episodes = append(episodes, FromDTO(dto))
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].ID < episodes[j].ID })
	return episodes
}

// PageFromDTO returns a mapper for the list page with the given number.
func PageFromDTO(number int) func(rickapi.EpisodePageDTO) Page {
	return func(dto rickapi.EpisodePageDTO) Page {
		episodes := make([]Episode, 0, len(dto.Results))
		for _, e := range dto.Results {
			episodes = append(episodes, FromDTO(e))
		}
		return Page{
			Number:     number,
			TotalPages: dto.Info.Pages,
			TotalCount: dto.Info.Count,
			HasNext:    dto.Info.Next != "",
			Episodes:   episodes,
		}
	}
}

func parseCode(code string) (season, number int) {
	if _, err := fmt.Sscanf(code, "S%dE%d", &season, &number); err != nil {
		return 0, 0
	}
	return season, number
}
