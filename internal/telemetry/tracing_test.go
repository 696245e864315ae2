package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "", "quickfix-test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracerWithEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "http://127.0.0.1:4318", "quickfix-test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
