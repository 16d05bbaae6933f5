package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"fortune-master/backend/pkg/logger"
)

// Yuanfenju endpoint paths, relative to the configured base URL
const (
	EndpointBaziPaipan = "Bazi/paipan"
	EndpointYaogua     = "Zhanbu/yaogua"
	EndpointZhougong   = "Gongju/zhougong"
)

// YuanfenjuClient calls the yuanfenju.com divination API. Every endpoint
// takes a form-encoded POST carrying api_key and answers with
// {errcode, errmsg, data}.
type YuanfenjuClient struct {
	client  *resty.Client
	apiKey  string
	baseURL string
	logger  *zap.Logger
}

type yuanfenjuEnvelope struct {
	ErrCode int             `json:"errcode"`
	ErrMsg  string          `json:"errmsg"`
	Data    json.RawMessage `json:"data"`
}

// NewYuanfenjuClient creates a client for the given base URL
func NewYuanfenjuClient(baseURL, apiKey string) *YuanfenjuClient {
	return &YuanfenjuClient{
		client: resty.New().
			SetTimeout(20*time.Second).
			SetHeader("Accept", "application/json"),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Get(),
	}
}

// Configured reports whether an API key is present
func (c *YuanfenjuClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Call posts params to endpoint and returns the raw data field
func (c *YuanfenjuClient) Call(ctx context.Context, endpoint string, params map[string]string) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("yuanfenju API key is not configured")
	}

	form := make(map[string]string, len(params)+1)
	for k, v := range params {
		form[k] = v
	}
	form["api_key"] = c.apiKey

	var envelope yuanfenjuEnvelope
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&envelope).
		Post(c.baseURL + "/" + endpoint)
	if err != nil {
		return nil, fmt.Errorf("yuanfenju request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("yuanfenju request failed: HTTP %d", resp.StatusCode())
	}
	if envelope.ErrCode != 0 {
		c.logger.Warn("Yuanfenju API returned an error",
			zap.String("endpoint", endpoint),
			zap.Int("errcode", envelope.ErrCode),
			zap.String("errmsg", envelope.ErrMsg),
		)
		return nil, fmt.Errorf("yuanfenju error %d: %s", envelope.ErrCode, envelope.ErrMsg)
	}

	return envelope.Data, nil
}
