package intent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	cluAPIVersion      = "2023-04-01"
	cluPath            = "/language/:analyze-conversations"
	cluRequestKind     = "Conversation"
	cluResultKind      = "ConversationResult"
	cluProjectKind     = "Conversation"
	cluStringIndexType = "Utf16CodeUnit"
)

var ErrMalformedResponse = errors.New("malformed conversation analysis response")

type CLUConfig struct {
	Endpoint       string
	Key            string
	ProjectName    string
	DeploymentName string
	Timeout        time.Duration
}

type cluClassifier struct {
	cfg       CLUConfig
	client    *http.Client
	validator *validator.Validate
	log       *logrus.Logger
}

type cluRequest struct {
	Kind          string           `json:"kind"`
	AnalysisInput cluAnalysisInput `json:"analysisInput"`
	Parameters    cluParameters    `json:"parameters"`
}

type cluAnalysisInput struct {
	ConversationItem cluConversationItem `json:"conversationItem"`
}

type cluConversationItem struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participantId"`
	Text          string `json:"text"`
}

type cluParameters struct {
	ProjectName     string `json:"projectName"`
	DeploymentName  string `json:"deploymentName"`
	StringIndexType string `json:"stringIndexType"`
}

type cluResponse struct {
	Kind   string     `json:"kind" validate:"eq=ConversationResult"`
	Result *cluResult `json:"result" validate:"required"`
}

type cluResult struct {
	Query      string         `json:"query"`
	Prediction *cluPrediction `json:"prediction" validate:"required"`
}

type cluPrediction struct {
	ProjectKind string   `json:"projectKind" validate:"eq=Conversation"`
	TopIntent   string   `json:"topIntent"`
	Intents     []Intent `json:"intents" validate:"dive"`
	Entities    []Entity `json:"entities" validate:"dive"`
}

type cluErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewCLUClassifier(log *logrus.Logger, cfg CLUConfig) Classifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	return &cluClassifier{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		validator: validator.New(),
		log:       log,
	}
}

func (c *cluClassifier) Analyze(ctx context.Context, text string) (*Prediction, error) {
	payload, err := json.Marshal(cluRequest{
		Kind: cluRequestKind,
		AnalysisInput: cluAnalysisInput{
			ConversationItem: cluConversationItem{ID: "1", ParticipantID: "1", Text: text},
		},
		Parameters: cluParameters{
			ProjectName:     c.cfg.ProjectName,
			DeploymentName:  c.cfg.DeploymentName,
			StringIndexType: cluStringIndexType,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode conversation request: %w", err)
	}

	url := fmt.Sprintf("%s%s?api-version=%s", c.cfg.Endpoint, cluPath, cluAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build conversation request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("conversation analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read conversation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr cluErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Code != "" {
			return nil, fmt.Errorf("conversation analysis returned %d: %s: %s", resp.StatusCode, apiErr.Error.Code, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("conversation analysis returned %d", resp.StatusCode)
	}

	var decoded cluResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := c.validator.Struct(decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	prediction := decoded.Result.Prediction
	c.log.WithFields(logrus.Fields{
		"top_intent": prediction.TopIntent,
		"intents":    len(prediction.Intents),
		"entities":   len(prediction.Entities),
	}).Debug("Conversation analysis completed")

	return &Prediction{
		TopIntent: prediction.TopIntent,
		Intents:   prediction.Intents,
		Entities:  prediction.Entities,
	}, nil
}
