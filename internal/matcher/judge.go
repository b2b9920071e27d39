package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// judgeTimeout bounds each model call. Answers are judged while the session
// is locked.
const judgeTimeout = 10 * time.Second

const judgeSystemPrompt = "You are a fair judge for a scavenger hunt game. " +
	"Your job is to determine if a user's answer is semantically equivalent to the accepted answers."

// AIJudge asks an OpenAI-compatible chat model whether an answer is
// equivalent to one of the accepted answers.
type AIJudge struct {
	client openai.Client
	model  string
}

// NewAIJudge returns a judge for the given model. baseURL may be empty to
// use the default endpoint.
func NewAIJudge(apiKey, model, baseURL string) *AIJudge {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
		option.WithRequestTimeout(judgeTimeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AIJudge{client: openai.NewClient(opts...), model: model}
}

func (j *AIJudge) Judge(ctx context.Context, question, answer string, accepted []string) (bool, error) {
	prompt := fmt.Sprintf("Question: %s\nAccepted answers: %s\nUser answer: %s\n\n"+
		"Is the user's answer semantically equivalent to any of the accepted answers? "+
		"Consider spelling mistakes, synonyms, and different phrasings. "+
		"Only respond with 'YES' if it's essentially correct or 'NO' if it's incorrect.",
		question, strings.Join(accepted, ", "), answer)

	resp, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(j.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(judgeSystemPrompt),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(10),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return false, fmt.Errorf("judge request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, errors.New("judge returned no choices")
	}

	verdict := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Message.Content))
	return strings.HasPrefix(verdict, "YES"), nil
}
