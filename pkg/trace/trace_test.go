package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContextRoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), "abc")
	assert.Equal(t, "abc", FromContext(ctx))
	assert.Empty(t, FromContext(context.Background()))
}

func TestFromHeaders(t *testing.T) {
	headers := map[string]string{"X-Request-ID": "req-1"}
	assert.Equal(t, "req-1", FromHeaders(func(k string) string { return headers[k] }))

	headers[HeaderName] = "trace-1"
	assert.Equal(t, "trace-1", FromHeaders(func(k string) string { return headers[k] }))

	generated := FromHeaders(func(string) string { return "" })
	assert.Len(t, generated, 36)
}
