package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		want  Intent
	}{
		{"validate_token", IntentSymbol},
		{"AuthHandler", IntentSymbol},
		{"auth::jwt::validate", IntentSymbol},
		{"func ParseConfig", IntentSymbol},
		{"src/auth/handler.rs", IntentPath},
		{"handler.rs", IntentPath},
		{"internal\\auth", IntentPath},
		{`"connection refused"`, IntentError},
		{"error: cannot find module", IntentError},
		{"panic: runtime error", IntentError},
		{"where is rate limiting implemented", IntentNaturalLanguage},
		{"how does authentication work", IntentNaturalLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestExtractIdentifier(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"where is RateLimiter defined", "RateLimiter"},
		{"how does validate_token work", "validate_token"},
		{"plain words only here", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractIdentifier(tt.query))
		})
	}
}
