package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"FortuneScanner/internal/config"
	"FortuneScanner/internal/domain"
	"FortuneScanner/internal/ports"
)

const schemaName = "ohaasa_ai_bundle"

const defaultSystemPrompt = "너는 한국어 운세 콘텐츠를 만드는 전문 에디터다.\n" +
	"- 사용자가 보는 UI는 카드형(총운/연애운/학업운/금전운/건강운) 5개다.\n" +
	"- 번역: message_jp를 자연스러운 한국어로 번역하되 과장하지 말고 간결하게.\n" +
	"- 카드: 각 카드 comment는 1~2문장, tip/warning은 각 1문장.\n" +
	"- 표현 금지: 선정적/차별적/혐오/폭력 조장.\n" +
	"- 점수는 입력 scores를 참고하되 0~100 정수.\n" +
	"- lucky_points는 모바일 UI에 들어갈 짧은 단어로.\n" +
	"- 반드시 JSON만 출력.\n"

// OpenAIClient implements BundleGenerator against the OpenAI Responses API
// with a strict structured-output schema.
type OpenAIClient struct {
	baseURL      string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.BundleGenerator = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Generate posts one structured-output request and decodes the bundle.
// Non-200 responses, unparsable bodies, and schema-shape violations are all
// returned as plain errors so the caller's retry policy can classify them
// as transient.
func (c *OpenAIClient) Generate(ctx context.Context, req ports.GenerateRequest) (domain.ContentBundle, error) {
	if c.apiKey == "" || c.baseURL == "" || c.model == "" {
		return domain.ContentBundle{}, fmt.Errorf("openai client misconfigured")
	}

	body, err := json.Marshal(c.buildPayload(req))
	if err != nil {
		return domain.ContentBundle{}, fmt.Errorf("marshal openai payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return domain.ContentBundle{}, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.ContentBundle{}, fmt.Errorf("generate bundle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.ContentBundle{}, fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return domain.ContentBundle{}, fmt.Errorf("decode openai response: %w", err)
	}

	outText := envelope.outputText()
	if outText == "" {
		return domain.ContentBundle{}, fmt.Errorf("openai response has no output text")
	}

	var bundle domain.ContentBundle
	if err := json.Unmarshal([]byte(outText), &bundle); err != nil {
		return domain.ContentBundle{}, fmt.Errorf("parse bundle json: %w", err)
	}

	if got := len(bundle.AI.Cards); got != len(domain.CardCategories) {
		return domain.ContentBundle{}, fmt.Errorf("bundle has %d cards, want %d", got, len(domain.CardCategories))
	}

	return bundle, nil
}

func (c *OpenAIClient) buildPayload(req ports.GenerateRequest) map[string]any {
	system := c.systemPrompt
	if strings.TrimSpace(system) == "" {
		system = defaultSystemPrompt
	}
	if req.Corrective != "" {
		system += "\n" + req.Corrective
	}

	scoresJSON, _ := json.Marshal(req.Scores)
	user := fmt.Sprintf(
		"[KST 날짜] %s\n[서양 별자리] %s (%s)\n[오하아사 원문 message_jp]\n%s\n\n[점수(scores)] %s\n\n"+
			"요구 결과(JSON):\n"+
			"- message_ko: 원문을 자연스러운 한국어로 번역\n"+
			"- ai.summary: headline/body/tip/warning\n"+
			"- ai.cards: 5개(총운/연애운/학업운/금전운/건강운) category, tone(상승/안정/하락), score, comment, tip, warning\n"+
			"- ai.lucky_points: color_name,color_hex,number(1~9),item,keyword\n",
		req.DateKST, req.SignKO, req.SignKey, req.MessageJP, scoresJSON,
	)

	return map[string]any{
		"model": c.model,
		"input": []map[string]any{
			{"role": "system", "content": []map[string]any{{"type": "text", "text": system}}},
			{"role": "user", "content": []map[string]any{{"type": "text", "text": user}}},
		},
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   schemaName,
				"schema": bundleSchema(),
				"strict": true,
			},
		},
	}
}

// bundleSchema mirrors domain.ContentBundle. Every object level lists all of
// its properties as required; the Responses API rejects strict schemas that
// do not.
func bundleSchema() map[string]any {
	cardItem := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"category": map[string]any{"type": "string", "enum": domain.CardCategories[:]},
			"tone":     map[string]any{"type": "string", "enum": []string{domain.ToneRise, domain.ToneSteady, domain.ToneFall}},
			"score":    map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"comment":  map[string]any{"type": "string"},
			"tip":      map[string]any{"type": "string"},
			"warning":  map[string]any{"type": "string"},
		},
		"required": []string{"category", "tone", "score", "comment", "tip", "warning"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"message_ko": map[string]any{"type": "string"},
			"ai": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"summary": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"properties": map[string]any{
							"headline": map[string]any{"type": "string"},
							"body":     map[string]any{"type": "string"},
							"tip":      map[string]any{"type": "string"},
							"warning":  map[string]any{"type": "string"},
						},
						"required": []string{"headline", "body", "tip", "warning"},
					},
					"cards": map[string]any{
						"type":     "array",
						"minItems": 5,
						"maxItems": 5,
						"items":    cardItem,
					},
					"lucky_points": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"properties": map[string]any{
							"color_name": map[string]any{"type": "string"},
							"color_hex":  map[string]any{"type": "string", "pattern": `^#[0-9A-Fa-f]{6}$`},
							"number":     map[string]any{"type": "integer", "minimum": 1, "maximum": 9},
							"item":       map[string]any{"type": "string"},
							"keyword":    map[string]any{"type": "string"},
						},
						"required": []string{"color_name", "color_hex", "number", "item", "keyword"},
					},
				},
				"required": []string{"summary", "cards", "lucky_points"},
			},
		},
		"required": []string{"message_ko", "ai"},
	}
}

// responseEnvelope covers both the flat output_text field and the nested
// output/content list the Responses API may return.
type responseEnvelope struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func (e responseEnvelope) outputText() string {
	if e.OutputText != "" {
		return e.OutputText
	}
	for _, item := range e.Output {
		for _, c := range item.Content {
			if (c.Type == "output_text" || c.Type == "text") && c.Text != "" {
				return c.Text
			}
		}
	}
	return ""
}
