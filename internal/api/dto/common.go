package dto

import "github.com/goccy/go-json"

// Response 统一返回体
type Response struct {
	Code    int         `json:"Code"`
	Message string      `json:"Message"`
	Data    interface{} `json:"Data"`
}

// RawResponse 客户端解码用返回体，Data 延迟解析
type RawResponse struct {
	Code    int             `json:"Code"`
	Message string          `json:"Message"`
	Data    json.RawMessage `json:"Data"`
}
