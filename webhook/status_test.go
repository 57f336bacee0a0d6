package webhook_test

import (
	"testing"

	"github.com/marcelsud/webhook-receiver/webhook"
	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "received", webhook.Received.String())
	assert.Equal(t, "processing", webhook.Processing.String())
	assert.Equal(t, "processed", webhook.Processed.String())
	assert.Equal(t, "failed_validation", webhook.FailedValidation.String())
	assert.Equal(t, "error", webhook.Errored.String())
	assert.Equal(t, "unknown", webhook.Status(999).String())
}

func TestStatus_RoundTrip(t *testing.T) {
	for _, s := range []webhook.Status{
		webhook.Received,
		webhook.Processing,
		webhook.Processed,
		webhook.FailedValidation,
		webhook.Errored,
	} {
		assert.Equal(t, s, webhook.NewStatus(s.String()))
		assert.NoError(t, s.Validate())
	}
}

func TestStatus_IsFinal(t *testing.T) {
	assert.False(t, webhook.Received.IsFinal())
	assert.False(t, webhook.Processing.IsFinal())
	assert.True(t, webhook.Processed.IsFinal())
	assert.True(t, webhook.FailedValidation.IsFinal())
	assert.True(t, webhook.Errored.IsFinal())
}

func TestStatus_Validate(t *testing.T) {
	assert.Error(t, webhook.Status(0).Validate())
	assert.Error(t, webhook.Status(42).Validate())
}
