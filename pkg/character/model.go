// Package character holds the character entity, its mapping from the wire
// model, its domain errors and the repository that fetches it under a
// cache policy.
package character

import (
	"time"

	"github.com/illmade-knight/go-rickverse/pkg/rickapi"
)

// Status is the life status of a character.
type Status string

const (
	StatusAlive   Status = "Alive"
	StatusDead    Status = "Dead"
	StatusUnknown Status = "unknown"
)

// Gender of a character.
type Gender string

const (
	GenderFemale     Gender = "Female"
	GenderMale       Gender = "Male"
	GenderGenderless Gender = "Genderless"
	GenderUnknown    Gender = "unknown"
)

// Place is an origin or last known location. ID is zero when the API does
// not link the place to a location resource.
type Place struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name"`
}

// Character is the domain representation of a character resource.
type Character struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	Species    string    `json:"species"`
	Type       string    `json:"type,omitempty"`
	Gender     Gender    `json:"gender"`
	Origin     Place     `json:"origin"`
	Location   Place     `json:"location"`
	ImageURL   string    `json:"imageUrl"`
	EpisodeIDs []int     `json:"episodeIds"`
	Created    time.Time `json:"created"`
}

// Page is one page of the character list.
type Page struct {
	Number     int         `json:"page"`
	TotalPages int         `json:"totalPages"`
	TotalCount int         `json:"totalCount"`
	HasNext    bool        `json:"hasNext"`
	Characters []Character `json:"characters"`
}

// FromDTO maps a wire character to the domain entity.
func FromDTO(dto rickapi.CharacterDTO) Character {
	created, _ := time.Parse(time.RFC3339, dto.Created)
	return Character{
		ID:         dto.ID,
		Name:       dto.Name,
		Status:     parseStatus(dto.Status),
		Species:    dto.Species,
		Type:       dto.Type,
		Gender:     parseGender(dto.Gender),
		Origin:     placeFromDTO(dto.Origin),
		Location:   placeFromDTO(dto.Location),
		ImageURL:   dto.Image,
		EpisodeIDs: rickapi.IDsFromURLs(dto.Episode),
		Created:    created,
	}
}

// PageFromDTO returns a mapper for the list page with the given number.
func PageFromDTO(number int) func(rickapi.CharacterPageDTO) Page {
	return func(dto rickapi.CharacterPageDTO) Page {
		characters := make([]Character, 0, len(dto.Results))
		for _, c := range dto.Results {
			characters = append(characters, FromDTO(c))
		}
		return Page{
			Number:     number,
			TotalPages: dto.Info.Pages,
			TotalCount: dto.Info.Count,
			HasNext:    dto.Info.Next != "",
			Characters: characters,
		}
	}
}

func placeFromDTO(dto rickapi.LocationRefDTO) Place {
	id, _ := rickapi.IDFromURL(dto.URL)
	return Place{ID: id, Name: dto.Name}
}

func parseStatus(s string) Status {
	switch Status(s) {
	case StatusAlive, StatusDead:
		return Status(s)
	default:
		return StatusUnknown
	}
}

func parseGender(s string) Gender {
	switch Gender(s) {
	case GenderFemale, GenderMale, GenderGenderless:
		return Gender(s)
	default:
		return GenderUnknown
	}
}
