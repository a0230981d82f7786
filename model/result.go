package model

import "github.com/google/uuid"

// RetrievalResult is one ranked candidate from semantic retrieval
type RetrievalResult struct {
	Entity     *ContentEntity `json:"entity"`
	Similarity float64        `json:"similarity"`
}

// ExportCheck is the read-side export gate result. Allowed is true iff every
// scene is confirmed; otherwise BlockingScenes lists the non-conforming ids.
type ExportCheck struct {
	Allowed        bool        `json:"allowed"`
	BlockingScenes []uuid.UUID `json:"blocking_scenes"`
}
