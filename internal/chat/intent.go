package chat

import "strings"

// Mode selects the prompt template used for generation.
type Mode string

const (
	ModeDefault   Mode = "default"
	ModeAdSamples Mode = "ad_samples"
)

// adKeywords marks requests for advertising copy. Matched case-insensitively
// as substrings of the latest user turn.
var adKeywords = []string{
	"ad sample",
	"ad samples",
	"ad example",
	"ad examples",
	"ad copy",
	"ad copies",
	"facebook ad",
	"google ads",
	"linkedin ad",
	"instagram ad",
	"tiktok ad",
	"twitter ad",
	"x ad",
	"youtube ad",
	"display ad",
	"banner ad",
	"ad creative",
	"marketing copy",
	"promo copy",
}

// DetectMode classifies the latest user turn. Intent only changes which
// prompt template is used, not retrieval.
func DetectMode(lastUserMessage string) Mode {
	text := strings.ToLower(lastUserMessage)
	for _, k := range adKeywords {
		if strings.Contains(text, k) {
			return ModeAdSamples
		}
	}
	return ModeDefault
}

const adSamplesTemplate = `You are a helpful assistant specialized in marketing copy.
You can refer to the following context of ad samples and brand material:
{context}

Follow the structure and tone of the retrieved samples where they fit.
Don't rely too heavily on the given context. Use your existing knowledge and use the context as a reference.

User:{question}
Your Answer:`

const defaultTemplate = `You are a helpful assistant.
You can refer to the following context to answer the user question:
{context}

Don't rely too heavily on the given context. Use your existing knowledge and use the context as a reference.

User:{question}
Your Answer:`

// TemplateFor returns the raw prompt template for a mode.
func TemplateFor(mode Mode) string {
	if mode == ModeAdSamples {
		return adSamplesTemplate
	}
	return defaultTemplate
}

// FormatPrompt fills a template's {context} and {question} slots.
func FormatPrompt(template, context, question string) string {
	r := strings.NewReplacer("{context}", context, "{question}", question)
	return r.Replace(template)
}
