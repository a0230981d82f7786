package generate

// JSON schemas for structured-output requests. The provider is asked for
// strict conformance, but every payload is still validated locally after
// decoding; the schema is a constraint on the model, not the trust boundary.

// scaffoldSchema constrains a full adventure outline: 3-5 scenes, each with
// a title, a known type, and a short description.
func scaffoldSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"scenes"},
		"properties": map[string]any{
			"scenes": map[string]any{
				"type":     "array",
				"minItems": 3,
				"maxItems": 5,
				"items":    sceneOutlineSchema(),
			},
		},
	}
}

// sceneOutlineSchema constrains one scaffold-level scene outline.
func sceneOutlineSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"title", "type", "description"},
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "minLength": 1},
			"type":        map[string]any{"type": "string", "enum": []string{"combat", "exploration", "social", "puzzle"}},
			"description": map[string]any{"type": "string", "minLength": 1},
		},
	}
}

// expansionSchema constrains one scene expansion. Only descriptions is
// required; every named reference must come from the candidate lists
// enumerated in the prompt and is re-validated after decoding.
func expansionSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"descriptions"},
		"properties": map[string]any{
			"descriptions": map[string]any{
				"type":     "array",
				"minItems": 3,
				"maxItems": 5,
				"items":    map[string]any{"type": "string", "minLength": 1},
			},
			"narration": map[string]any{"type": "string"},
			"npcs": map[string]any{
				"type":  "array",
				"items": npcSchema(),
			},
			"adversaries": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"name", "quantity"},
					"properties": map[string]any{
						"name":           map[string]any{"type": "string"},
						"display_name":   map[string]any{"type": "string"},
						"quantity":       map[string]any{"type": "integer", "minimum": 1},
						"customizations": map[string]any{"type": "string"},
					},
				},
			},
			"environment": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"name"},
				"properties": map[string]any{
					"name":               map[string]any{"type": "string"},
					"custom_description": map[string]any{"type": "string"},
				},
			},
			"loot": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"name", "item_type", "quantity"},
					"properties": map[string]any{
						"name":      map[string]any{"type": "string"},
						"item_type": map[string]any{"type": "string", "enum": []string{"weapon", "armor"}},
						"quantity":  map[string]any{"type": "integer", "minimum": 1},
					},
				},
			},
		},
	}
}

func npcSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"name", "role"},
		"properties": map[string]any{
			"name":        map[string]any{"type": "string", "minLength": 1},
			"class":       map[string]any{"type": "string"},
			"ancestry":    map[string]any{"type": "string"},
			"community":   map[string]any{"type": "string"},
			"equipment":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"personality": map[string]any{"type": "string"},
			"role":        map[string]any{"type": "string", "enum": []string{"ally", "neutral", "antagonist", "quest_giver"}},
			"description": map[string]any{"type": "string"},
		},
	}
}
