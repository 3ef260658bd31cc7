package openai

import (
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/phrazzld/reelgen-api/internal/retry"
)

// ErrNoChoices is returned when a completion carries no choices.
var ErrNoChoices = errors.New("completion returned no choices")

// mapError converts SDK errors into the error shapes the retry classifier
// understands. Transport errors are returned unchanged.
func mapError(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		return retry.NewStatusError(apiErr.StatusCode, apiErr.Message, err)
	}
	return err
}

// firstChoice returns the content of the first choice. A choice stopped by
// the content filter means the provider refused the input.
func firstChoice(resp *openaisdk.ChatCompletion) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%w: completion stopped by content filter", retry.ErrUnprocessableInput)
	}
	return choice.Message.Content, nil
}
