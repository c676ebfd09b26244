package narrative

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/radarcol/radarcol/internal/analysis"
	apperrors "github.com/radarcol/radarcol/internal/errors"
)

// Sub-keys a structured list entry may carry its text under. Models
// occasionally nest factors as objects instead of plain strings.
var flattenKeys = []string{"factor", "texto", "text", "descripcion", "description", "nombre", "recomendacion"}

// parseNarrative extracts the narrative JSON object from raw model output,
// tolerating surrounding prose, and coerces list entries to plain strings
func parseNarrative(raw string) (*analysis.Narrative, error) {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	summary, _ := obj["resumen"].(string)
	if summary == "" {
		return nil, apperrors.NewNarrativeError("narrative response missing resumen", nil)
	}

	return &analysis.Narrative{
		Summary:         summary,
		Factors:         flattenList(obj["factores"]),
		Recommendations: flattenList(obj["recomendaciones"]),
	}, nil
}

// extractJSONObject finds the outermost JSON object in text. Models wrap the
// payload in markdown fences or explanatory prose often enough that strict
// parsing of the full response is a losing game.
func extractJSONObject(text string) (map[string]interface{}, error) {
	var obj map[string]interface{}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err == nil {
			return obj, nil
		}
	}

	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, apperrors.NewNarrativeError("no JSON object in narrative response", err)
	}
	return obj, nil
}

// flattenList coerces a decoded JSON list to plain strings. Strings pass
// through; objects are flattened via known sub-keys; anything else is
// formatted as text.
func flattenList(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return []string{}
	}

	out := make([]string, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case string:
			if t != "" {
				out = append(out, t)
			}
		case map[string]interface{}:
			if s := flattenObject(t); s != "" {
				out = append(out, s)
			}
		default:
			out = append(out, fmt.Sprintf("%v", t))
		}
	}
	return out
}

func flattenObject(obj map[string]interface{}) string {
	for _, key := range flattenKeys {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}

	// Last resort: any string value
	for _, v := range obj {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}
