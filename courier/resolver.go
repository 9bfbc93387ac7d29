package courier

import (
	"fmt"
	"regexp"
)

// Model-id inference patterns. Legacy patterns are evaluated before chat
// patterns so an id matching both classifies as legacy: older generation
// names win.
var (
	legacyModelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^gpt-3\.5`),
		regexp.MustCompile(`^gpt-4$`),
		regexp.MustCompile(`^gpt-4-`),
		regexp.MustCompile(`^text-davinci`),
	}
	chatModelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^gpt-4o`),
		regexp.MustCompile(`^gpt-4\.1`),
		regexp.MustCompile(`^gpt-5`),
		regexp.MustCompile(`^o[1-9]`),
	}
)

// resolveFamily selects the adapter family governing one request. An explicit
// family always wins over inference. Inference checks the catalog, then the
// legacy pattern list, then the chat pattern list; an id matching nothing
// falls back to defaultFamily. The fallback is a best guess about future
// model naming, configurable policy rather than a hard invariant.
func resolveFamily(modelID string, explicit, defaultFamily AdapterFamily) (AdapterFamily, error) {
	if explicit != "" {
		return checkFamily(explicit)
	}

	if info := GetModelInfo(modelID); info != nil {
		return checkFamily(info.Family)
	}

	for _, pattern := range legacyModelPatterns {
		if pattern.MatchString(modelID) {
			return FamilyLegacy, nil
		}
	}
	for _, pattern := range chatModelPatterns {
		if pattern.MatchString(modelID) {
			return FamilyChat, nil
		}
	}

	if defaultFamily == "" {
		defaultFamily = FamilyChat
	}
	return checkFamily(defaultFamily)
}

// checkFamily rejects families that cannot serve a request. The claude family
// fails fast with a descriptive error; it never silently substitutes another
// adapter.
func checkFamily(family AdapterFamily) (AdapterFamily, error) {
	switch family {
	case FamilyChat, FamilyLegacy:
		return family, nil
	case FamilyClaude:
		return "", &NotImplementedError{
			SDKError: SDKError{Message: "the claude adapter family is not yet implemented"},
			Family:   FamilyClaude,
		}
	default:
		return "", &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("unknown adapter family %q", family),
		}}
	}
}
