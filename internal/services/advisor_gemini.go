package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"playmind-backend/internal/models"
)

// adviceCount is the fixed number of entries every generator must return.
const adviceCount = 2

// GeminiAdvisor is the shared Gemini client behind the per-game generators.
type GeminiAdvisor struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	maxRetries int
	rateChan   chan struct{} // Token bucket
}

func NewGeminiAdvisor(apiKey string, concurrentReqs, maxRetries int) (*GeminiAdvisor, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.7)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiAdvisor{
		client:     client,
		model:      model,
		maxRetries: maxRetries,
		rateChan:   rateChan,
	}, nil
}

func (g *GeminiAdvisor) Close() {
	g.client.Close()
}

func (g *GeminiAdvisor) acquireRate(ctx context.Context) error {
	select {
	case <-g.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (g *GeminiAdvisor) releaseRate() {
	g.rateChan <- struct{}{}
}

// generate runs the bounded retry loop. Any error it returns is terminal for
// the generation attempt; the caller substitutes an error-marked advice row.
func (g *GeminiAdvisor) generate(ctx context.Context, prompt string) ([]models.AdviceItem, error) {
	if err := g.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer g.releaseRate()

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
			}
		}

		resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = fmt.Errorf("Gemini API error: %w", err)
			continue
		}

		items, err := parseAdviceResponse(extractAdviceText(resp))
		if err != nil {
			lastErr = err
			continue
		}
		return items, nil
	}

	return nil, fmt.Errorf("advice generation failed after %d attempts: %w", g.maxRetries, lastErr)
}

func extractAdviceText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// parseAdviceResponse expects {"analysis": [{"title", "description"}, ...]}
// with exactly two entries.
func parseAdviceResponse(raw string) ([]models.AdviceItem, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed struct {
		Analysis []models.AdviceItem `json:"analysis"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// Try to extract the JSON object
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to parse advice response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse advice response: %w", err)
		}
	}

	if len(parsed.Analysis) != adviceCount {
		return nil, fmt.Errorf("expected %d advice entries, got %d", adviceCount, len(parsed.Analysis))
	}
	for _, item := range parsed.Analysis {
		if item.Title == "" || item.Description == "" {
			return nil, fmt.Errorf("advice entry missing title or description")
		}
	}

	return parsed.Analysis, nil
}

// KidsTrafficAdvisor generates advice for the Go/No-Go game.
type KidsTrafficAdvisor struct {
	*GeminiAdvisor
}

func NewKidsTrafficAdvisor(g *GeminiAdvisor) *KidsTrafficAdvisor {
	return &KidsTrafficAdvisor{GeminiAdvisor: g}
}

func (a *KidsTrafficAdvisor) GenerateAdvice(ctx context.Context, stats map[string]any) ([]models.AdviceItem, error) {
	return a.generate(ctx, buildKidsTrafficAdvicePrompt(stats))
}

// BBStarAdvisor generates advice for the sequence memory game.
type BBStarAdvisor struct {
	*GeminiAdvisor
}

func NewBBStarAdvisor(g *GeminiAdvisor) *BBStarAdvisor {
	return &BBStarAdvisor{GeminiAdvisor: g}
}

func (a *BBStarAdvisor) GenerateAdvice(ctx context.Context, stats map[string]any) ([]models.AdviceItem, error) {
	return a.generate(ctx, buildBBStarAdvicePrompt(stats))
}
