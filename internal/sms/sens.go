// Package sms sends notification texts through Naver Cloud SENS.
package sms

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://sens.apigw.ntruss.com"

// smsByteLimit is the SENS limit for the SMS type; longer bodies go out as LMS.
const smsByteLimit = 90

type Client struct {
	baseURL   string
	accessKey string
	secretKey string
	serviceID string
	from      string
	client    *http.Client
	logger    *zap.Logger
}

func NewClient(accessKey, secretKey, serviceID, from string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   defaultBaseURL,
		accessKey: accessKey,
		secretKey: secretKey,
		serviceID: serviceID,
		from:      from,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

type sendRequest struct {
	Type        string    `json:"type"`
	From        string    `json:"from"`
	Content     string    `json:"content"`
	Messages    []message `json:"messages"`
	CountryCode string    `json:"countryCode,omitempty"`
}

type message struct {
	To string `json:"to"`
}

type sendResponse struct {
	RequestID  string `json:"requestId"`
	StatusCode string `json:"statusCode"`
	StatusName string `json:"statusName"`
}

// Send delivers one text message. SENS wants recipients without hyphens.
func (c *Client) Send(ctx context.Context, to, content string) error {
	uri := fmt.Sprintf("/sms/v2/services/%s/messages", c.serviceID)
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	body, err := json.Marshal(sendRequest{
		Type:     messageType(content),
		From:     c.from,
		Content:  content,
		Messages: []message{{To: strings.ReplaceAll(to, "-", "")}},
	})
	if err != nil {
		return fmt.Errorf("sens: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uri, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sens: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("x-ncp-apigw-timestamp", timestamp)
	req.Header.Set("x-ncp-iam-access-key", c.accessKey)
	req.Header.Set("x-ncp-apigw-signature-v2", sign(c.secretKey, http.MethodPost, uri, timestamp, c.accessKey))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sens: send: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sens: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out sendResponse
	if err := json.Unmarshal(respBody, &out); err == nil {
		c.logger.Info("sms accepted",
			zap.String("request_id", out.RequestID),
			zap.String("status", out.StatusCode))
	}
	return nil
}

func messageType(content string) string {
	if len(content) > smsByteLimit {
		return "LMS"
	}
	return "SMS"
}

// sign produces the x-ncp-apigw-signature-v2 value: HMAC-SHA256 over
// "METHOD URI\nTIMESTAMP\nACCESS_KEY", base64 encoded.
func sign(secretKey, method, uri, timestamp, accessKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(method + " " + uri + "\n" + timestamp + "\n" + accessKey))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
