package pipeline

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Settings is resolved once before the pipeline is built and copied by value
// into it.
type Settings struct {
	SourceLanguage    string `validate:"required,bcp47_language_tag"`
	PivotLanguage     string `validate:"required,bcp47_language_tag"`
	SpeechKey         string
	SpeechRegion      string
	LanguageKey       string
	LanguageEndpoint  string `validate:"omitempty,url"`
	CLUProjectName    string
	CLUDeploymentName string
}

var SupportedSourceLanguages = []string{"en-US", "zh-CN", "ms-MY", "ta-IN"}

func (s Settings) Validate() error {
	return validator.New().Struct(s)
}

// IsSupportedSource reports whether tag is one of the accepted speaker languages.
func IsSupportedSource(tag string) bool {
	for _, supported := range SupportedSourceLanguages {
		if sameLanguage(tag, supported) {
			return true
		}
	}
	return false
}

func sameLanguage(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
