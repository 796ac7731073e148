// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestContextIDRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithSessionID(ctx, "sess-9")

	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	assert.Equal(t, "sess-9", SessionIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestWithContextMergesCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithSessionID(ctx, "sess-9")
	merged := WithContext(ctx, base)
	merged.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"session_id":"sess-9"`)

	buf.Reset()
	plain := WithContext(context.Background(), base)
	plain.Info().Msg("plain")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestWithComponentFromContextEmitsIDs(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := base.WithContext(context.Background())
	ctx = ContextWithRequestID(ctx, "req-456")
	ctx = ContextWithSessionID(ctx, "sess-7")

	// Level methods chain directly on the returned logger.
	WithComponentFromContext(ctx, "api").Info().Msg("request")

	out := buf.String()
	assert.Contains(t, out, `"component":"api"`)
	assert.Contains(t, out, `"request_id":"req-456"`)
	assert.Contains(t, out, `"session_id":"sess-7"`)
}
