package embedded

import (
	_ "embed"
)

// Embed all prompt and heuristic data files
//
//go:embed data/prompts/analysis_system_prompt.txt
var AnalysisSystemPromptTxt []byte

//go:embed data/prompts/synthesis_system_prompt.txt
var SynthesisSystemPromptTxt []byte

//go:embed data/prompts/synthesis_user_prompt.tmpl
var SynthesisUserPromptTmpl []byte

//go:embed data/heuristics/emotions.json
var EmotionsJSON []byte

//go:embed data/heuristics/text_analysis.json
var TextAnalysisJSON []byte

//go:embed data/heuristics/questions.json
var QuestionsJSON []byte
