package llmtool

import (
	"fmt"
	"strings"
)

// PromptPreset holds reusable constraints and rules for structured prompts.
type PromptPreset struct {
	Constraints []string
	Rules       []string
}

// ApplyPresets prepends preset constraints/rules to a structured prompt spec.
func ApplyPresets(spec StructuredPromptSpec, presets ...PromptPreset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var merged PromptPreset
	for _, p := range presets {
		merged.Constraints = append(merged.Constraints, p.Constraints...)
		merged.Rules = append(merged.Rules, p.Rules...)
	}
	spec.Constraints = append(merged.Constraints, spec.Constraints...)
	spec.Rules = append(merged.Rules, spec.Rules...)
	return spec
}

// PresetStrictJSON enforces strict JSON-only output.
func PresetStrictJSON() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Return strict JSON only.",
			"Match the schema exactly; no extra fields.",
			"No markdown, comments, or trailing commas.",
		},
	}
}

// PresetNoInvent prevents fabricated endpoints and parameters.
func PresetNoInvent() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Do not invent endpoints, parameters, or variables; use only what the catalogue provides.",
		},
	}
}

// PresetOutputLanguage instructs models to emit user-visible text in the
// requested language while keeping code and identifiers in English.
func PresetOutputLanguage(lang string) PromptPreset {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = "en"
	}
	return PromptPreset{
		Rules: []string{
			fmt.Sprintf("All user-visible text (titles, labels, descriptions, explanations) must be written in %q.", lang),
			"Code, identifiers, and comments stay in English regardless of the output language.",
		},
	}
}
