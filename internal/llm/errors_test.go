package llm_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"docanalyser/internal/llm"
)

func TestRateLimitError_ErrorString(t *testing.T) {
	rlErr := llm.NewRateLimitError("openrouter", fmt.Errorf("rate limited"), 30)

	assert.Contains(t, rlErr.Error(), "openrouter")
	assert.Contains(t, rlErr.Error(), "rate limited")
	assert.Contains(t, rlErr.Error(), "30s")
}

func TestRateLimitError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying error")
	rlErr := llm.NewRateLimitError("openai", underlying, 60)

	assert.Equal(t, underlying, errors.Unwrap(rlErr))
}

func TestRateLimitError_ErrorsAs(t *testing.T) {
	rlErr := llm.NewRateLimitError("openrouter", fmt.Errorf("rate limited"), 30)
	wrapped := fmt.Errorf("classify failed: %w", rlErr)

	var target *llm.RateLimitError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "openrouter", target.Provider)
	assert.Equal(t, 30*time.Second, target.RetryAfter)
}

func TestNewRateLimitError_DefaultRetryAfter(t *testing.T) {
	rlErr := llm.NewRateLimitError("openai", fmt.Errorf("err"), 0)
	assert.Equal(t, 60*time.Second, rlErr.RetryAfter)
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, llm.ParseRetryAfterHeader(""))
	assert.Equal(t, 30, llm.ParseRetryAfterHeader("30"))
	assert.Equal(t, 0, llm.ParseRetryAfterHeader("invalid"))
	assert.Equal(t, 120, llm.ParseRetryAfterHeader("120"))
}

func TestAPIError_Error(t *testing.T) {
	err := &llm.APIError{Provider: "openrouter", StatusCode: 502, Body: "bad gateway"}
	assert.Equal(t, "openrouter API error (status 502): bad gateway", err.Error())
}
