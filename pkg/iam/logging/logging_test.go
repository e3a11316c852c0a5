package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadisoka/iam-verify/pkg/iam"
)

var log = NewPkgLogger()

func TestNewPkgLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	// Created before the output was switched.
	log.Info().Msg("switched")

	var entry map[string]interface{}
	require.Nil(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "switched", entry["message"])
	assert.Equal(t, "iam-verify/pkg/iam/logging", entry["pkg"])
	assert.NotEmpty(t, entry["time"])
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	sessionID := uuid.New()
	callCtx := iam.NewCallContext(context.Background(), sessionID, "SubmitCode")
	log.WithContext(callCtx).Info().Msg("hello")

	var entry map[string]interface{}
	require.Nil(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, sessionID.String(), entry["session"])
	assert.Equal(t, "SubmitCode", entry["method"])
	assert.Equal(t, callCtx.RequestID().String(), entry["request_id"])
	assert.Equal(t, "iam-verify/pkg/iam/logging", entry["pkg"])
}

func TestWithNilContext(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	log.WithContext(nil).Warn().Msg("no context")

	var entry map[string]interface{}
	require.Nil(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "iam", entry["class"])
	assert.Equal(t, "warn", entry["level"])
}
