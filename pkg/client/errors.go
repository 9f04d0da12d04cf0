package client

import "errors"

// Sentinel errors for local validation and transport failures.

var (
	// ErrEmptyQuery is returned when a recommend call gets a blank query.
	ErrEmptyQuery = errors.New("empty query")

	// ErrUnsupportedImageType is returned before any network access when an
	// image upload has an extension outside the whitelist.
	ErrUnsupportedImageType = errors.New("unsupported image file type")

	// ErrUnsupportedAudioType is returned before any network access when an
	// audio upload has an extension outside the whitelist.
	ErrUnsupportedAudioType = errors.New("unsupported audio file type")

	// ErrBadStatus is wrapped around any non-2xx backend response.
	ErrBadStatus = errors.New("unexpected response status")

	// ErrNoServerFound is returned when port discovery exhausts every candidate.
	ErrNoServerFound = errors.New("no recommender server found")
)
