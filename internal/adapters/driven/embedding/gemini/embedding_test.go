package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
)

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code      codes.Code
		want      int
		transient bool
	}{
		{codes.ResourceExhausted, 429, true},
		{codes.Unavailable, 503, true},
		{codes.DeadlineExceeded, 504, true},
		{codes.Internal, 500, true},
		{codes.InvalidArgument, 400, false},
		{codes.Unauthenticated, 401, false},
		{codes.PermissionDenied, 403, false},
		{codes.NotFound, 404, false},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			got := httpStatus(tt.code)
			assert.Equal(t, tt.want, got)
			err := domain.NewEmbeddingProviderError(providerName, got, errors.New("x"))
			assert.Equal(t, tt.transient, err.Transient)
		})
	}
}

func TestClassify_PlainErrorIsTransient(t *testing.T) {
	err := classify(errors.New("connection reset"))

	var providerErr *domain.EmbeddingProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "gemini", providerErr.Provider)
	assert.True(t, providerErr.Transient)
}

func TestToFloat32_Copies(t *testing.T) {
	in := []float32{1, 2}
	out := toFloat32(in)
	out[0] = 9
	assert.Equal(t, float32(1), in[0])
}
