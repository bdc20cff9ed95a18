// Package classifier judges food and proof photos and reverse-geocodes
// coordinates through an OpenAI chat model.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	models "github.com/phillip/food-rescue-go/models"
)

const DefaultModel = "gpt-4o-mini"

type ProofKind string

const (
	ProofPickup   ProofKind = "pickup"
	ProofDelivery ProofKind = "delivery"
)

type ProofVerdict struct {
	IsValid  bool   `json:"isValid"`
	Feedback string `json:"feedback"`
}

// Degraded answers used when the model cannot be reached.
var (
	SafetyFallback = models.SafetyVerdict{
		IsSafe:    false,
		Reasoning: "Visual check unavailable. Please manually ensure food is fresh and safe.",
	}
	ProofFallback = ProofVerdict{IsValid: true, Feedback: "Photo received and logged."}
)

const (
	safetyPrompt = "Analyze this image of food intended for donation. Is it visually safe and edible? " +
		"Look for signs of spoilage, mold, or improper handling. " +
		`Respond with a JSON object {"isSafe": boolean, "reasoning": string}.`
	pickupPrompt = "Analyze this image to verify a food pickup. It MUST show food containers, boxes, bags of food, " +
		"or people handing over items. If the image is black, blurry, or shows something irrelevant, set isValid to false. " +
		`Respond with a JSON object {"isValid": boolean, "feedback": string}.`
	deliveryPrompt = "Analyze this image to verify a food delivery drop-off. It MUST show food items being delivered, " +
		"a building entrance (orphanage/shelter), or people receiving food. If the image is irrelevant or unclear, " +
		`set isValid to false. Respond with a JSON object {"isValid": boolean, "feedback": string}.`
	geocodePrompt = "You are an expert delivery coordinator. The user is at: %f, %f. " +
		"Find accurate address details and a specific landmark nearby. " +
		`Respond with a JSON object {"line1": string, "line2": string, "landmark": string, "pincode": string}.`
)

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

type OpenAI struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAI(apiKey, model string, logger *zap.Logger) *OpenAI {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), model, logger)
}

// NewOpenAIWithConfig lets callers point the client at a different base URL.
func NewOpenAIWithConfig(cfg openai.ClientConfig, model string, logger *zap.Logger) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("initializing openai classifier", zap.String("model", model))
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model, logger: logger}
}

func (o *OpenAI) ClassifySafety(ctx context.Context, imageURL string) (models.SafetyVerdict, error) {
	var v struct {
		IsSafe    bool   `json:"isSafe"`
		Reasoning string `json:"reasoning"`
	}
	if err := o.ask(ctx, safetyPrompt, imageURL, &v); err != nil {
		return models.SafetyVerdict{}, err
	}
	return models.SafetyVerdict{IsSafe: v.IsSafe, Reasoning: v.Reasoning}, nil
}

func (o *OpenAI) ClassifyProof(ctx context.Context, kind ProofKind, imageURL string) (ProofVerdict, error) {
	prompt := pickupPrompt
	if kind == ProofDelivery {
		prompt = deliveryPrompt
	}
	var v ProofVerdict
	if err := o.ask(ctx, prompt, imageURL, &v); err != nil {
		return ProofVerdict{}, err
	}
	return v, nil
}

func (o *OpenAI) ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error) {
	var v struct {
		Line1    string `json:"line1"`
		Line2    string `json:"line2"`
		Landmark string `json:"landmark"`
		Pincode  string `json:"pincode"`
	}
	if err := o.ask(ctx, fmt.Sprintf(geocodePrompt, lat, lng), "", &v); err != nil {
		return nil, err
	}
	return &models.Address{Line1: v.Line1, Line2: v.Line2, Landmark: v.Landmark, Pincode: v.Pincode}, nil
}

// ask sends one user turn, optionally with an image, and decodes the JSON
// object in the reply into out.
func (o *OpenAI) ask(ctx context.Context, prompt, imageURL string, out any) error {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if imageURL == "" {
		msg.Content = prompt
	} else {
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    imageURL,
				Detail: openai.ImageURLDetailLow,
			}},
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: []openai.ChatCompletionMessage{msg},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		o.logger.Warn("openai call failed", zap.Error(err))
		return fmt.Errorf("%w: openai: %v", models.ErrExternalService, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: openai returned no choices", models.ErrExternalService)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw := jsonObject.FindString(content)
	if raw == "" {
		return fmt.Errorf("%w: no JSON object in reply", models.ErrExternalService)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: decode reply: %v", models.ErrExternalService, err)
	}
	return nil
}
