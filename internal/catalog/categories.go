package catalog

import "strings"

// categoryRule maps model-id keywords to a category. Rules are ordered and
// the first match wins.
type categoryRule struct {
	keywords []string
	prefix   bool
	category string
}

var categoryRules = []categoryRule{
	{keywords: []string{"gpt", "openai"}, category: "OpenAI"},
	{keywords: []string{"claude"}, category: "Claude"},
	{keywords: []string{"qwen"}, category: "Qwen"},
	{keywords: []string{"deepseek"}, category: "DeepSeek"},
	{keywords: []string{"gemini"}, category: "Gemini"},
	{keywords: []string{"yi-"}, prefix: true, category: "01.AI"},
	{keywords: []string{"moonshot"}, category: "Moonshot"},
	{keywords: []string{"doubao"}, category: "Doubao"},
	{keywords: []string{"ernie"}, category: "ERNIE"},
	{keywords: []string{"sparkdesk"}, category: "SparkDesk"},
	{keywords: []string{"flux", "dall-e", "midjourney", "mj_", "stable-diffusion", "ideogram"}, category: "Image"},
	{keywords: []string{"tts", "whisper"}, category: "Audio"},
	{keywords: []string{"embedding", "reranker"}, category: "Embedding"},
}

// DefaultCategory is assigned when no rule matches.
const DefaultCategory = "Other"

// Categorize classifies a model ID by case-insensitive keyword matching.
func Categorize(modelID string) string {
	id := strings.ToLower(modelID)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if rule.prefix {
				if strings.HasPrefix(id, kw) {
					return rule.category
				}
			} else if strings.Contains(id, kw) {
				return rule.category
			}
		}
	}
	return DefaultCategory
}
