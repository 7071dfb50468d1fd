package intent

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const keywordThreshold = 0.2

// KeywordClassifier scores an utterance against the catalog with exact keyword,
// synonym and fuzzy matching. It needs no network and is meant for local runs.
type KeywordClassifier struct {
	catalog   []Definition
	stopWords map[string]bool
	log       *logrus.Logger
}

type keywordMatch struct {
	Keyword string
	Score   float64
}

func NewKeywordClassifier(log *logrus.Logger, catalog []Definition) *KeywordClassifier {
	if len(catalog) == 0 {
		catalog = DefaultCatalog()
	}

	stopWords := map[string]bool{
		"i": true, "me": true, "my": true, "a": true, "an": true, "the": true,
		"to": true, "for": true, "of": true, "and": true, "or": true, "is": true,
		"want": true, "would": true, "like": true, "please": true, "can": true,
		"could": true, "you": true, "help": true, "need": true, "some": true,
		"saya": true, "mau": true, "ingin": true, "tolong": true, "untuk": true,
	}

	return &KeywordClassifier{
		catalog:   catalog,
		stopWords: stopWords,
		log:       log,
	}
}

func (k *KeywordClassifier) Analyze(_ context.Context, text string) (*Prediction, error) {
	cleanText := cleanText(text)
	tokens := k.extractTokens(cleanText)

	prediction := &Prediction{}
	for _, def := range k.catalog {
		if len(def.Keywords) == 0 && len(def.Synonyms) == 0 {
			continue
		}

		confidence, matches := k.score(tokens, cleanText, def)
		if confidence <= keywordThreshold {
			continue
		}

		k.log.WithFields(logrus.Fields{
			"intent":     def.Name,
			"confidence": confidence,
			"matches":    len(matches),
		}).Debug("Keyword intent matched")

		prediction.Intents = append(prediction.Intents, Intent{
			Category:        def.Name,
			ConfidenceScore: confidence,
		})
	}

	sort.SliceStable(prediction.Intents, func(i, j int) bool {
		return prediction.Intents[i].ConfidenceScore > prediction.Intents[j].ConfidenceScore
	})

	if len(prediction.Intents) == 0 {
		prediction.Intents = []Intent{{Category: None, ConfidenceScore: 1}}
		return prediction, nil
	}

	prediction.TopIntent = prediction.Intents[0].Category
	return prediction, nil
}

func (k *KeywordClassifier) score(tokens []string, fullText string, def Definition) (float64, []keywordMatch) {
	var matches []keywordMatch
	totalScore := 0.0
	maxPossibleScore := 0.0

	for _, keyword := range def.Keywords {
		for _, token := range tokens {
			if strings.EqualFold(token, keyword) {
				matches = append(matches, keywordMatch{Keyword: keyword, Score: 1})
				totalScore += 1.0
				continue
			}
			if len(token) > 3 && similarity(token, keyword) > 0.8 {
				matches = append(matches, keywordMatch{Keyword: keyword, Score: 0.7})
				totalScore += 0.7
			}
		}
		maxPossibleScore += 1.0
	}

	for _, synonym := range def.Synonyms {
		s := similarity(fullText, synonym)
		if strings.Contains(fullText, cleanText(synonym)) {
			s = 1
		}
		if s > 0.6 {
			matches = append(matches, keywordMatch{Keyword: synonym, Score: s})
			totalScore += s * 1.2
		}
	}

	// Catalog keyword lists are long; a couple of hits is already a strong signal.
	confidence := totalScore / math.Max(math.Min(maxPossibleScore, 3), 1.0)
	if len(matches) > 1 {
		confidence *= 1.1
	}

	return math.Min(confidence, 1.0), matches
}

func (k *KeywordClassifier) extractTokens(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(text) {
		if len(word) > 1 && !k.stopWords[word] {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

func similarity(a, b string) float64 {
	norm1 := cleanText(a)
	norm2 := cleanText(b)

	if norm1 == norm2 {
		return 1.0
	}

	if strings.Contains(norm1, norm2) || strings.Contains(norm2, norm1) {
		shorter, longer := norm1, norm2
		if len(norm1) > len(norm2) {
			shorter, longer = norm2, norm1
		}
		return float64(len(shorter)) / float64(len(longer))
	}

	maxLen := math.Max(float64(len(norm1)), float64(len(norm2)))
	if maxLen == 0 {
		return 0.0
	}

	return math.Max(0, 1.0-(float64(levenshtein(norm1, norm2))/maxLen))
}

func levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

func cleanText(text string) string {
	text = strings.ToLower(text)

	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, _ := transform.String(t, text)

	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, result)

	return strings.Join(strings.Fields(result), " ")
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
