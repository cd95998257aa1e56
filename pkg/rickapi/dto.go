package rickapi

// The DTOs below mirror the REST schema of the Rick and Morty API. They are
// also the values stored in the volatile and persistent caches, so every
// field carries a json tag matching the wire name.

// InfoDTO is the pagination envelope of a list response.
type InfoDTO struct {
	Count int    `json:"count"`
	Pages int    `json:"pages"`
	Next  string `json:"next"`
	Prev  string `json:"prev"`
}

// LocationRefDTO is the embedded origin/location reference of a character.
type LocationRefDTO struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CharacterDTO is a single character resource.
type CharacterDTO struct {
	ID       int            `json:"id"`
	Name     string         `json:"name"`
	Status   string         `json:"status"`
	Species  string         `json:"species"`
	Type     string         `json:"type"`
	Gender   string         `json:"gender"`
	Origin   LocationRefDTO `json:"origin"`
	Location LocationRefDTO `json:"location"`
	Image    string         `json:"image"`
	Episode  []string       `json:"episode"`
	URL      string         `json:"url"`
	Created  string         `json:"created"`
}

// CharacterPageDTO is one page of the character list endpoint.
type CharacterPageDTO struct {
	Info    InfoDTO        `json:"info"`
	Results []CharacterDTO `json:"results"`
}

// EpisodeDTO is a single episode resource.
type EpisodeDTO struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	AirDate    string   `json:"air_date"`
	Episode    string   `json:"episode"`
	Characters []string `json:"characters"`
	URL        string   `json:"url"`
	Created    string   `json:"created"`
}

// EpisodePageDTO is one page of the episode list endpoint.
type EpisodePageDTO struct {
	Info    InfoDTO      `json:"info"`
	Results []EpisodeDTO `json:"results"`
}
