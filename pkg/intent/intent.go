// Package intent defines the intent classification contract and its backends:
// Azure Conversational Language Understanding, OpenAI, Gemini and an offline
// keyword scorer. All entity offsets and lengths are UTF-16 code units.
package intent

import (
	"context"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const ResolutionKindDateTime = "DateTimeResolution"

type Intent struct {
	Category        string  `json:"category" validate:"required"`
	ConfidenceScore float64 `json:"confidenceScore" validate:"gte=0,lte=1"`
}

type Resolution struct {
	ResolutionKind  string          `json:"resolutionKind"`
	DateTimeSubKind string          `json:"dateTimeSubKind,omitempty"`
	Timex           string          `json:"timex,omitempty"`
	Value           ResolutionValue `json:"value,omitempty"`
}

type Entity struct {
	Category        string       `json:"category" validate:"required"`
	Text            string       `json:"text"`
	Offset          int          `json:"offset" validate:"gte=0"`
	Length          int          `json:"length" validate:"gte=0"`
	ConfidenceScore float64      `json:"confidenceScore"`
	Resolutions     []Resolution `json:"resolutions,omitempty"`
}

type Prediction struct {
	TopIntent string   `json:"topIntent"`
	Intents   []Intent `json:"intents" validate:"dive"`
	Entities  []Entity `json:"entities" validate:"dive"`
}

// Classifier sends one utterance to a classification backend.
type Classifier interface {
	Analyze(ctx context.Context, text string) (*Prediction, error)
}

// ResolutionValue holds a resolved value that the service may encode either as
// a string or as a number.
type ResolutionValue string

func (v *ResolutionValue) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*v = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		*v = ResolutionValue(s)
		return nil
	}
	*v = ResolutionValue(raw)
	return nil
}

// DateTimeResolutions returns the date/time resolutions of the entity.
func (e Entity) DateTimeResolutions() []Resolution {
	var out []Resolution
	for _, r := range e.Resolutions {
		if r.ResolutionKind == ResolutionKindDateTime {
			out = append(out, r)
		}
	}
	return out
}

// Top returns the highest ranked intent, if any.
func (p *Prediction) Top() (Intent, bool) {
	if p == nil || len(p.Intents) == 0 {
		return Intent{}, false
	}
	best := p.Intents[0]
	for _, i := range p.Intents[1:] {
		if i.ConfidenceScore > best.ConfidenceScore {
			best = i
		}
	}
	return best, true
}
