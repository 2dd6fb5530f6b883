// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

type followers struct {
	Total int `json:"total"`
}

// ExternalURLs holds links to the resource on the Spotify web player.
type ExternalURLs struct {
	Spotify string `json:"spotify,omitempty"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID           string         `json:"id"`
	DisplayName  string         `json:"display_name"`
	Email        string         `json:"email"`
	Country      string         `json:"country"`
	Product      string         `json:"product"` // premium, free, etc.
	Followers    followers      `json:"followers"`
	Images       []SpotifyImage `json:"images"`
	ExternalURLs ExternalURLs   `json:"external_urls"`
	URI          string         `json:"uri"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Explicit     bool            `json:"explicit"`
	ExternalIDs  externalIDs     `json:"external_ids"`
	ExternalURLs ExternalURLs    `json:"external_urls"`
	Popularity   int             `json:"popularity"`
	PreviewURL   *string         `json:"preview_url"`
	URI          string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Genres       []string       `json:"genres,omitempty"`
	Images       []SpotifyImage `json:"images,omitempty"`
	Popularity   int            `json:"popularity,omitempty"`
	ExternalURLs ExternalURLs   `json:"external_urls"`
	URI          string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	AlbumType    string          `json:"album_type,omitempty"`
	Artists      []SpotifyArtist `json:"artists"`
	ReleaseDate  string          `json:"release_date"`
	TotalTracks  int             `json:"total_tracks"`
	Images       []SpotifyImage  `json:"images"`
	ExternalURLs ExternalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Href  string `json:"href,omitempty"`
	Total int    `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Owner         Owner               `json:"owner"`
	Public        bool                `json:"public"`
	Collaborative bool                `json:"collaborative"`
	Tracks        simplePlaylistTrack `json:"tracks"`
	Images        []SpotifyImage      `json:"images"`
	ExternalURLs  ExternalURLs        `json:"external_urls"`
	URI           string              `json:"uri"`
}

// Paging is the envelope Spotify wraps every list response in.
type Paging[T any] struct {
	Href     string  `json:"href,omitempty"`
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists = Paging[SpotifySimplePlaylist]

// SearchResult holds one paging object per requested search type.
type SearchResult struct {
	Tracks    *Paging[SpotifyTrack]          `json:"tracks,omitempty"`
	Artists   *Paging[SpotifyArtist]         `json:"artists,omitempty"`
	Albums    *Paging[SpotifyAlbum]          `json:"albums,omitempty"`
	Playlists *Paging[SpotifySimplePlaylist] `json:"playlists,omitempty"`
}

type playbackContext struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

// CurrentlyPlaying describes the track on the user's active device.
type CurrentlyPlaying struct {
	Timestamp            int64            `json:"timestamp"`
	ProgressMS           int              `json:"progress_ms"`
	IsPlaying            bool             `json:"is_playing"`
	CurrentlyPlayingType string           `json:"currently_playing_type"`
	Context              *playbackContext `json:"context"`
	Item                 *SpotifyTrack    `json:"item"`
}

// errorBody is the JSON error envelope returned by the Web API.
type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}
