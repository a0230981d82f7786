package model

// RetrievalConfig bounds one candidate retrieval pass for scene expansion.
type RetrievalConfig struct {
	AdversaryLimit   int `json:"adversary_limit"`
	EnvironmentLimit int `json:"environment_limit"`
	NPCSourceLimit   int `json:"npc_source_limit"` // classes/ancestries/communities, each
	LootLimit        int `json:"loot_limit"`       // weapons and armor, each
}

// DefaultRetrievalConfig returns the candidate limits used by scene expansion
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		AdversaryLimit:   5,
		EnvironmentLimit: 3,
		NPCSourceLimit:   6,
		LootLimit:        5,
	}
}

// AdventureParams are the adventure-level inputs to scaffold generation.
type AdventureParams struct {
	Title      string `json:"title"`
	Frame      string `json:"frame"`
	Focus      string `json:"focus"`
	PartySize  int    `json:"party_size"`
	PartyLevel int    `json:"party_level"`
	Difficulty string `json:"difficulty,omitempty"`
	Stakes     string `json:"stakes,omitempty"`
}
