package llmtool

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

// PresetNoInvent forbids content that is not in the provided input.
func PresetNoInvent() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Do not invent names, dates, numbers, owners, or commitments; use only the provided input.",
		},
	}
}

// PresetVerbatimCitations pins every citation to the exact text of a provided fact.
func PresetVerbatimCitations() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Every source_facts entry must be copied character-for-character from a provided fact's content or source_quote.",
			"Never cite by index, id, or paraphrase.",
		},
	}
}

// PresetNoConditionals keeps hypotheticals out of generated text.
func PresetNoConditionals() PromptPreset {
	return PromptPreset{
		Rules: []string{
			"State only firm commitments. Do not write conditional or hypothetical phrasing (if, unless, in case, might, could, would).",
			"Do not use placeholders such as [Name], TBD, or <date>.",
		},
	}
}

// PresetCautious prefers omission over guessing.
func PresetCautious() PromptPreset {
	return PromptPreset{
		Rules: []string{
			"Avoid guessing; when something is not explicitly stated, leave it out or use null.",
		},
	}
}
