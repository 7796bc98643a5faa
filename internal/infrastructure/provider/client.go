// Package provider implements the JSON-RPC client for the upstream SMS
// data source.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one SMS row as reported by the provider.
type Message struct {
	Phone    string `json:"phone"`
	Datetime string `json:"datetime"` // provider-formatted timestamp, opaque to us
	SenderID string `json:"senderid"`
	Message  string `json:"message"`
}

// Key is the dedup identity of a message: phone + "_" + provider timestamp.
func (m *Message) Key() string {
	return m.Phone + "_" + m.Datetime
}

// Client calls the provider's JSON-RPC endpoint.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a Client. The timeout bounds the whole request; there is
// no cancellation of an in-flight poll beyond it.
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int       `json:"id"`
}

type rpcParams struct {
	Filter  rpcFilter `json:"filter"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
}

type rpcFilter struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type rpcResponse struct {
	Result *struct {
		MDRFullList []Message `json:"mdr_full_list"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const timeLayout = "2006-01-02T15:04:05.000Z"

// FetchRecent requests the message list for the trailing 1-hour window,
// first page, newest first. An empty slice means a quiet channel.
func (c *Client) FetchRecent(ctx context.Context) ([]Message, error) {
	now := time.Now().UTC()
	payload := rpcRequest{
		JSONRPC: "2.0",
		Method:  "sms.mdr_full:get_list",
		Params: rpcParams{
			Filter: rpcFilter{
				StartDate: now.Add(-time.Hour).Format(timeLayout),
				EndDate:   now.Format(timeLayout),
			},
			Page:    1,
			PerPage: 10,
		},
		ID: 1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, snippet)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("provider error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return nil, nil
	}
	return rpcResp.Result.MDRFullList, nil
}
