package nlp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
)

var (
	thinkTags  = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFences = regexp.MustCompile("(?s)```(?:[a-zA-Z]+)?[ \\t]*\\n(.*?)```")
)

// RemoveThinkTags removes <think> tags and everything in between them from a string.
func RemoveThinkTags(input string) string {
	return thinkTags.ReplaceAllString(input, "")
}

// StripCodeFences returns the body of the first fenced block in response,
// or the trimmed response when it has none.
func StripCodeFences(response string) string {
	response = strings.TrimSpace(RemoveThinkTags(response))
	if m := codeFences.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.Trim(response, "`")
}

// ExtractJSONFromResponse attempts to extract JSON from LLM responses that may contain
// markdown code blocks or other surrounding text.
func ExtractJSONFromResponse(response string) string {
	response = StripCodeFences(response)

	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart != -1 && jsonEnd > jsonStart {
		return response[jsonStart : jsonEnd+1]
	}

	jsonStart = strings.Index(response, "[")
	jsonEnd = strings.LastIndex(response, "]")
	if jsonStart != -1 && jsonEnd > jsonStart {
		return response[jsonStart : jsonEnd+1]
	}

	return response
}

// DecodeJSONResponse extracts the JSON payload of a model reply, repairs
// common syntax damage and decodes it into target.
func DecodeJSONResponse(response string, target any) error {
	payload := ExtractJSONFromResponse(response)
	if err := json.Unmarshal([]byte(payload), target); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		return fmt.Errorf("failed to repair JSON response: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w", err)
	}
	return nil
}
