package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelPairs(t *testing.T) {
	long := strings.Repeat("x", 100)
	pairs := labelPairs(map[string]string{
		"route":   "/api/v1/sections/:section",
		"method":  "GET",
		"":        "dropped",
		"section": " ",
		"long":    long,
	})

	assert.Equal(t, []string{
		"long", long[:maxLabelValueLength],
		"method", "GET",
		"route", "/api/v1/sections/:section",
	}, pairs)
}

func TestWithProfilingLabels(t *testing.T) {
	var got string
	WithProfilingLabels(context.Background(), map[string]string{ProfilingLabelSection: "quotes"}, func(ctx context.Context) {
		got, _ = pprof.Label(ctx, ProfilingLabelSection)
	})
	assert.Equal(t, "quotes", got)

	called := false
	WithProfilingLabels(context.Background(), nil, func(ctx context.Context) { called = true })
	assert.True(t, called)
}
