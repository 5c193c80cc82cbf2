package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFonnteClient_Send(t *testing.T) {
	var gotAuth, gotTarget, gotMessage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotTarget = r.FormValue("target")
		gotMessage = r.FormValue("message")
		w.Write([]byte(`{"status": true}`))
	}))
	defer srv.Close()

	client := NewFonnteClientWithEndpoint(srv.URL, "device-token", "628123456789")
	err := client.Send(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "device-token", gotAuth)
	assert.Equal(t, "628123456789", gotTarget)
	assert.Equal(t, "hello", gotMessage)
}

func TestFonnteClient_SendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": false, "reason": "invalid target"}`))
	}))
	defer srv.Close()

	client := NewFonnteClientWithEndpoint(srv.URL, "device-token", "bad")
	err := client.Send(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid target")
}

func TestFonnteClient_SendGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewFonnteClientWithEndpoint(srv.URL, "wrong-token", "628123456789")
	err := client.Send(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
