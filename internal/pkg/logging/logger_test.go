package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestContextCarriesLogger(t *testing.T) {
	base := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), base)
	assert.Same(t, base, FromContext(ctx))
}

func TestContextWithNilLoggerIsNoop(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, ContextWithLogger(ctx, nil))
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
	assert.NotNil(t, FromContext(nil))
}
