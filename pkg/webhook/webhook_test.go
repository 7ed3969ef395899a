package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	payload := []byte(`{"event":"deposit"}`)
	got := Sign("secret", payload)

	mac := hmac.New(sha512.New, []byte("secret"))
	mac.Write(payload)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), got)

	// Changing the key changes the signature.
	assert.NotEqual(t, got, Sign("other", payload))
}

func TestNotifySignsAndPosts(t *testing.T) {
	var gotSignature string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("x-keeway-signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(resty.New().SetTimeout(5 * time.Second))
	err := sender.Notify(context.Background(), server.URL, "app-secret", map[string]string{"event": "deposit"})
	require.NoError(t, err)

	assert.Equal(t, Sign("app-secret", gotBody), gotSignature)
	assert.JSONEq(t, `{"event":"deposit"}`, string(gotBody))
}

func TestNotifyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewSender(resty.New().SetTimeout(5 * time.Second))
	err := sender.Notify(context.Background(), server.URL, "app-secret", map[string]string{})
	assert.Error(t, err)
}

func TestNotifySkipsEmptyURL(t *testing.T) {
	sender := NewSender(resty.New())
	assert.NoError(t, sender.Notify(context.Background(), "", "secret", map[string]string{}))
}
