package llm

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// CleanJSONText strips markdown fences and trims to the outermost braces,
// so a reply that wraps JSON in commentary still parses.
func CleanJSONText(content string) string {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end != -1 && end > start {
		cleaned = cleaned[start : end+1]
	}
	return cleaned
}

// ExtractJSONObject parses a model reply into a JSON object.
// Replies that are nearly JSON are passed through jsonrepair once before giving up.
func ExtractJSONObject(content string) (map[string]any, error) {
	cleaned := CleanJSONText(content)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrMalformedResponse)
	}

	var obj map[string]any
	err := json.Unmarshal([]byte(cleaned), &obj)
	if err == nil {
		return obj, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(cleaned)
	if repairErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	log.Printf("🔧 Repaired malformed JSON reply (%d -> %d chars)", len(cleaned), len(repaired))
	return obj, nil
}
