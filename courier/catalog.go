package courier

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID             string        `json:"id"`
	Family         AdapterFamily `json:"family"`
	DisplayName    string        `json:"display_name"`
	ContextWindow  int           `json:"context_window"`
	MaxOutput      *int          `json:"max_output,omitempty"`
	SupportsTools  bool          `json:"supports_tools"`
	SupportsVision bool          `json:"supports_vision"`
	Aliases        []string      `json:"aliases,omitempty"`
}

// Models is the built-in model catalog.
var Models = []ModelInfo{
	{
		ID: "gpt-4o", Family: FamilyChat, DisplayName: "GPT-4o",
		ContextWindow: 128000, MaxOutput: intPtr(16384),
		SupportsTools: true, SupportsVision: true,
		Aliases: []string{"4o"},
	},
	{
		ID: "gpt-4o-mini", Family: FamilyChat, DisplayName: "GPT-4o Mini",
		ContextWindow: 128000, MaxOutput: intPtr(16384),
		SupportsTools: true, SupportsVision: true,
		Aliases: []string{"4o-mini"},
	},
	{
		ID: "gpt-4.1", Family: FamilyChat, DisplayName: "GPT-4.1",
		ContextWindow: 1047576, MaxOutput: intPtr(32768),
		SupportsTools: true, SupportsVision: true,
	},
	{
		ID: "o3-mini", Family: FamilyChat, DisplayName: "o3-mini",
		ContextWindow: 200000, MaxOutput: intPtr(100000),
		SupportsTools: true,
	},
	{
		ID: "gpt-4", Family: FamilyLegacy, DisplayName: "GPT-4",
		ContextWindow: 8192, MaxOutput: intPtr(4096),
		SupportsTools: true,
	},
	{
		ID: "gpt-4-turbo", Family: FamilyLegacy, DisplayName: "GPT-4 Turbo",
		ContextWindow: 128000, MaxOutput: intPtr(4096),
		SupportsTools: true, SupportsVision: true,
	},
	{
		ID: "gpt-3.5-turbo", Family: FamilyLegacy, DisplayName: "GPT-3.5 Turbo",
		ContextWindow: 16385, MaxOutput: intPtr(4096),
		SupportsTools: true,
		Aliases:       []string{"3.5"},
	},
	{
		ID: "claude-sonnet-4", Family: FamilyClaude, DisplayName: "Claude Sonnet 4",
		ContextWindow: 200000, MaxOutput: intPtr(64000),
		SupportsTools: true, SupportsVision: true,
		Aliases: []string{"sonnet"},
	},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// ListModels returns all known models, optionally filtered by family.
func ListModels(family AdapterFamily) []ModelInfo {
	if family == "" {
		result := make([]ModelInfo, len(Models))
		copy(result, Models)
		return result
	}
	var result []ModelInfo
	for _, m := range Models {
		if m.Family == family {
			result = append(result, m)
		}
	}
	return result
}
