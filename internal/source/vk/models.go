package vk

import "encoding/json"

// wallGetResponse is the envelope of wall.get. Exactly one of Response
// and Error is set; an API-level error is not a transport failure and
// the two are surfaced differently.
type wallGetResponse struct {
	Response *WallPage `json:"response"`
	Error    *APIError `json:"error"`
}

// WallPage is one page of community wall posts.
type WallPage struct {
	Count int    `json:"count"`
	Items []Post `json:"items"`
}

// Post is one raw wall post as the API returns it.
type Post struct {
	ID          int64        `json:"id"`
	Text        string       `json:"text"`
	Date        int64        `json:"date"` // unix seconds
	MarkedAsAds int          `json:"marked_as_ads"`
	Attachments []Attachment `json:"attachments"`
}

// IsAd reports whether the post carries the advertisement marker.
func (p Post) IsAd() bool {
	return p.MarkedAsAds != 0
}

// Attachment is a tagged union discriminated by Type. Only the payload
// matching Type is populated; other kinds (audio, doc, link) are
// carried with both payloads nil and ignored downstream.
type Attachment struct {
	Type  string `json:"type"`
	Photo *Photo `json:"photo"`
	Video *Video `json:"video"`
}

type Photo struct {
	ID    int64       `json:"id"`
	Sizes []PhotoSize `json:"sizes"`
}

type PhotoSize struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Video struct {
	ID        int64       `json:"id"`
	OwnerID   int64       `json:"owner_id"`
	AccessKey string      `json:"access_key"`
	Player    string      `json:"player"`
	Image     []PhotoSize `json:"image"`
	Photo     []PhotoSize `json:"photo"`
}

// Thumbnails returns whichever thumbnail variant list the API filled in.
func (v Video) Thumbnails() []PhotoSize {
	if len(v.Image) > 0 {
		return v.Image
	}
	return v.Photo
}

// groupsGetByIDResponse handles both envelope shapes the API has used:
// the current {"response": {"groups": [...]}} and the legacy
// {"response": [...]}.
type groupsGetByIDResponse struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

type groupsWrapper struct {
	Groups []Group `json:"groups"`
}

type Group struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
}
