package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRecent_ParsesMessageList(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Api-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`{
			"jsonrpc": "2.0",
			"result": {
				"mdr_full_list": [
					{"phone": "628111222333", "datetime": "2024-01-01 10:00:00", "senderid": "WhatsApp", "message": "Your code is 552-910"}
				]
			},
			"id": 1
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)
	msgs, err := c.FetchRecent(context.Background())

	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "628111222333", msgs[0].Phone)
	assert.Equal(t, "WhatsApp", msgs[0].SenderID)
	assert.Equal(t, "628111222333_2024-01-01 10:00:00", msgs[0].Key())

	assert.Equal(t, "sms.mdr_full:get_list", gotBody["method"])
	params := gotBody["params"].(map[string]interface{})
	assert.Equal(t, float64(1), params["page"])
	assert.Equal(t, float64(10), params["per_page"])
	filter := params["filter"].(map[string]interface{})
	assert.NotEmpty(t, filter["start_date"])
	assert.NotEmpty(t, filter["end_date"])
}

func TestFetchRecent_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad filter", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)
	_, err := c.FetchRecent(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestFetchRecent_RPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32600,"message":"invalid request"},"id":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)
	_, err := c.FetchRecent(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request")
}

func TestFetchRecent_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":{"mdr_full_list":[]},"id":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)
	msgs, err := c.FetchRecent(context.Background())

	require.NoError(t, err)
	assert.Empty(t, msgs)
}
