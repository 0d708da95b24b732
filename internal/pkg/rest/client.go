package rest

import (
	"Courier/internal/api/config"
	"Courier/internal/api/dto"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// Client 协作 REST 接口客户端：会话列表、历史消息、成员目录
// 任何非成功响应都作为软失败返回错误，由调用方决定是否保留旧状态
type Client struct {
	http *resty.Client
}

func NewClient(cfg *config.RestConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(timeout) * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{http: client}
}

// SetAuthToken 连接建立时注入会话 Token
func (c *Client) SetAuthToken(token string) {
	c.http.SetAuthToken(token)
}

// ListConversations 拉取我的会话列表
func (c *Client) ListConversations(ctx context.Context) ([]*dto.ConversationDTO, error) {
	var out []*dto.ConversationDTO
	if err := c.get(ctx, "/api/im/list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMessages 拉取指定会话的历史消息
func (c *Client) ListMessages(ctx context.Context, key string) ([]*dto.MessageDTO, error) {
	var out []*dto.MessageDTO
	params := map[string]string{"conversationKey": key}
	if err := c.get(ctx, "/api/im/history", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListContacts 拉取可会话成员目录
func (c *Client) ListContacts(ctx context.Context) ([]*dto.ContactDTO, error) {
	var out []*dto.ContactDTO
	if err := c.get(ctx, "/api/im/contacts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if params != nil {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("请求 %s 失败: http %d", path, resp.StatusCode())
	}

	var envelope dto.RawResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("解析 %s 响应失败: %w", path, err)
	}
	if envelope.Code != 200 {
		return fmt.Errorf("请求 %s 失败: %s", path, envelope.Message)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("解析 %s 数据失败: %w", path, err)
	}
	return nil
}
