package stdwebhook_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"github.com/marcelsud/webhook-receiver/handlers/stdwebhook"
	"github.com/marcelsud/webhook-receiver/webhook"
	"github.com/marcelsud/webhook-receiver/webhook/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecret(t *testing.T, raw []byte) signature.Secret {
	t.Helper()
	secret, err := signature.ParseSecret(signature.SecretPrefix + base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	return secret
}

func signedRequest(t *testing.T, secret signature.Secret, msgID string, timestamp time.Time, body []byte) webhook.Request {
	t.Helper()
	sig, err := signature.Sign(secret, msgID, timestamp, body)
	require.NoError(t, err)
	return webhook.Request{
		ServiceID: "svc",
		Body:      body,
		Headers: map[string]string{
			stdwebhook.HeaderID:        msgID,
			stdwebhook.HeaderTimestamp: strconv.FormatInt(timestamp.Unix(), 10),
			stdwebhook.HeaderSignature: sig,
		},
	}
}

func TestHandler_Valid(t *testing.T) {
	ctx := context.Background()
	secret := testSecret(t, bytes.Repeat([]byte("k"), 32))

	newHandler := func(t *testing.T, opts stdwebhook.Options) *stdwebhook.Handler {
		t.Helper()
		if opts.Secrets == nil {
			opts.Secrets = []signature.Secret{secret}
		}
		h, err := stdwebhook.New(opts)
		require.NoError(t, err)
		return h
	}

	t.Run("valid signature", func(t *testing.T) {
		h := newHandler(t, stdwebhook.Options{})
		req := signedRequest(t, secret, "msg_1", time.Now(), []byte(`{"hello": "world"}`))

		valid, err := h.Valid(ctx, req)

		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("tampered body", func(t *testing.T) {
		h := newHandler(t, stdwebhook.Options{})
		req := signedRequest(t, secret, "msg_1", time.Now(), []byte(`{"hello": "world"}`))
		req.Body = []byte(`{"hello": "tampered"}`)

		valid, err := h.Valid(ctx, req)

		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		h := newHandler(t, stdwebhook.Options{})
		other := testSecret(t, bytes.Repeat([]byte("x"), 32))
		req := signedRequest(t, other, "msg_1", time.Now(), []byte(`{}`))

		valid, err := h.Valid(ctx, req)

		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("rotated secret still verifies", func(t *testing.T) {
		old := testSecret(t, bytes.Repeat([]byte("o"), 32))
		h := newHandler(t, stdwebhook.Options{Secrets: []signature.Secret{secret, old}})
		req := signedRequest(t, old, "msg_1", time.Now(), []byte(`{}`))

		valid, err := h.Valid(ctx, req)

		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("missing headers", func(t *testing.T) {
		h := newHandler(t, stdwebhook.Options{})

		valid, err := h.Valid(ctx, webhook.Request{ServiceID: "svc", Body: []byte(`{}`)})

		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("timestamp outside tolerance", func(t *testing.T) {
		h := newHandler(t, stdwebhook.Options{Tolerance: time.Minute})
		req := signedRequest(t, secret, "msg_1", time.Now().Add(-10*time.Minute), []byte(`{}`))

		valid, err := h.Valid(ctx, req)

		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		h := newHandler(t, stdwebhook.Options{})
		req := signedRequest(t, secret, "msg_1", time.Now(), []byte(`{}`))
		req.Headers[stdwebhook.HeaderTimestamp] = "not-a-number"

		valid, err := h.Valid(ctx, req)

		require.NoError(t, err)
		assert.False(t, valid)
	})
}

func TestHandler_ExtractEventID(t *testing.T) {
	secret := testSecret(t, bytes.Repeat([]byte("k"), 32))
	h, err := stdwebhook.New(stdwebhook.Options{Secrets: []signature.Secret{secret}})
	require.NoError(t, err)

	t.Run("uses the sender-assigned id", func(t *testing.T) {
		id, err := h.ExtractEventID(webhook.Request{
			Headers: map[string]string{stdwebhook.HeaderID: "msg_7"},
		})
		require.NoError(t, err)
		assert.Equal(t, "msg_7", id)
	})

	t.Run("missing id header", func(t *testing.T) {
		_, err := h.ExtractEventID(webhook.Request{})
		require.Error(t, err)
	})
}

func TestHandler_Options(t *testing.T) {
	secret := testSecret(t, bytes.Repeat([]byte("k"), 32))

	t.Run("requires a secret", func(t *testing.T) {
		_, err := stdwebhook.New(stdwebhook.Options{})
		require.Error(t, err)
	})

	t.Run("inactive option", func(t *testing.T) {
		h, err := stdwebhook.New(stdwebhook.Options{Secrets: []signature.Secret{secret}, Inactive: true})
		require.NoError(t, err)
		assert.False(t, h.Active())
	})

	t.Run("process delegates to the callback", func(t *testing.T) {
		var got string
		h, err := stdwebhook.New(stdwebhook.Options{
			Secrets: []signature.Secret{secret},
			Process: func(ctx context.Context, wh webhook.ReceivedWebhook) error {
				got = wh.ID
				return nil
			},
		})
		require.NoError(t, err)

		require.NoError(t, h.Process(context.Background(), webhook.ReceivedWebhook{ID: "wh-1"}))
		assert.Equal(t, "wh-1", got)
	})
}
