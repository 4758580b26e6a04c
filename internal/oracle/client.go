// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package oracle implements the external LLM classification oracle client
// on AWS Bedrock. The engine treats oracle answers strictly as untrusted
// hints; clamping and validation happen in the classification engine.
// Implements: prd005-classification R4 (oracle tier), R6 (error handling);
//
//	docs/ARCHITECTURE § Classification Oracle.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	defaultTimeout   = 60 * time.Second
	maxRetryAttempts = 3
	baseRetryDelay   = 1 * time.Second
	defaultMaxTokens = 1024
)

// ErrOracle indicates the oracle call failed (network, auth, rate limit).
var ErrOracle = errors.New("oracle failure")

// ErrOracleTimeout indicates the per-batch deadline elapsed before a usable
// answer arrived. Affected files fall through to the default tier.
var ErrOracleTimeout = errors.New("oracle timeout")

// FileSample is the request payload for one file: path, a truncated content
// excerpt, and a summary of the surrounding repository.
type FileSample struct {
	Path    string `json:"path"`
	Excerpt string `json:"excerpt"`
	Context string `json:"context"`
}

// Answer is the oracle's verdict for one file.
type Answer struct {
	Path       string  `json:"path"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ClientConfig configures the Bedrock oracle client.
type ClientConfig struct {
	ModelID   string        // Bedrock model ID (required)
	Region    string        // AWS region (required)
	Profile   string        // AWS credential profile (optional)
	Timeout   time.Duration // Per-batch timeout (default 60s)
	MaxTokens int           // Max tokens for the response (default 1024)
}

// BedrockAPI abstracts the Bedrock Converse call for testing.
type BedrockAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client wraps the AWS Bedrock runtime client for batched classification.
type Client struct {
	api       BedrockAPI
	modelID   string
	timeout   time.Duration
	maxTokens int
}

// NewClient creates a Bedrock oracle client using the standard AWS
// credential chain.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("%w: model ID is required", ErrOracle)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: region is required", ErrOracle)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", ErrOracle, err)
	}

	return newClient(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

// NewClientWithAPI creates a client with a pre-configured API
// implementation. Used for testing with mocks.
func NewClientWithAPI(api BedrockAPI, cfg ClientConfig) *Client {
	return newClient(api, cfg)
}

func newClient(api BedrockAPI, cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{api: api, modelID: cfg.ModelID, timeout: timeout, maxTokens: maxTokens}
}

// ClassifyBatch sends one batch of file samples and returns the parsed
// answers. The per-batch timeout applies to the whole call including
// retries for throttling; on deadline the caller receives ErrOracleTimeout
// and no partial credit.
func (c *Client) ClassifyBatch(ctx context.Context, samples []FileSample) ([]Answer, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.sendWithRetry(callCtx, buildPrompt(samples))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			return nil, fmt.Errorf("%w: batch of %d after %s", ErrOracleTimeout, len(samples), c.timeout)
		}
		return nil, err
	}

	return parseAnswers(text)
}

// sendWithRetry calls Converse with exponential backoff for throttling.
func (c *Client) sendWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		input := &bedrockruntime.ConverseInput{
			ModelId: aws.String(c.modelID),
			Messages: []brtypes.Message{{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: prompt}},
			}},
			InferenceConfig: &brtypes.InferenceConfiguration{
				MaxTokens: aws.Int32(int32(c.maxTokens)),
			},
		}

		output, err := c.api.Converse(ctx, input)
		if err != nil {
			var throttle *brtypes.ThrottlingException
			if errors.As(err, &throttle) {
				lastErr = err
				continue
			}
			return "", c.classifyError(err)
		}

		return extractText(output), nil
	}

	return "", fmt.Errorf("%w: rate limited after %d retries: %v", ErrOracle, maxRetryAttempts, lastErr)
}

// classifyError wraps Bedrock errors into ErrOracle with descriptive
// messages.
func (c *Client) classifyError(err error) error {
	var accessDenied *brtypes.AccessDeniedException
	if errors.As(err, &accessDenied) {
		return fmt.Errorf("%w: credential or permission issue: %v", ErrOracle, err)
	}

	var notFound *brtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: model not found: %s", ErrOracle, c.modelID)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out after %s", ErrOracleTimeout, c.timeout)
	}

	return fmt.Errorf("%w: %v", ErrOracle, err)
}

// extractText concatenates the text blocks of a Converse response.
func extractText(out *bedrockruntime.ConverseOutput) string {
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	return b.String()
}

// buildPrompt renders the classification request for one batch.
func buildPrompt(samples []FileSample) string {
	var b strings.Builder
	b.WriteString("Classify each file into exactly one category: source, data, documentation, tests, or meta.\n")
	b.WriteString("Respond with a JSON array only, one object per file:\n")
	b.WriteString(`[{"path": "...", "category": "...", "confidence": 0.0, "reasoning": "..."}]` + "\n\n")
	for _, s := range samples {
		fmt.Fprintf(&b, "File: %s\n", s.Path)
		if s.Context != "" {
			fmt.Fprintf(&b, "Context: %s\n", s.Context)
		}
		fmt.Fprintf(&b, "Content:\n```\n%s\n```\n\n", s.Excerpt)
	}
	return b.String()
}

// parseAnswers extracts the JSON answer array from the response text. The
// model may wrap the array in prose or a code fence; everything outside the
// outermost brackets is ignored.
func parseAnswers(text string) ([]Answer, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array in response", ErrOracle)
	}

	var answers []Answer
	if err := json.Unmarshal([]byte(text[start:end+1]), &answers); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrOracle, err)
	}
	return answers, nil
}
