package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/jsonapi"

	"github.com/Yates-Labs/survivalbot/internal/models"
)

func New(baseURL, token string) Client {
	return Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
	}
}

// Client talks to a running `survivalbot serve`.
type Client struct {
	baseURL string
	token   string
}

func (c Client) QueryPost(ctx context.Context, req models.QueryPostRequest) (resp models.QueryPostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("query").String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.QueryPostRequest, models.QueryPostResponse](ctx, url, req, jsonapi.WithRequestHeader("Authorization", c.authorization()))
}

func (c Client) ContextGet(ctx context.Context) (resp models.ContextGetResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("context").String()
	if err != nil {
		return resp, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return resp, fmt.Errorf("failed to create request: %w", err)
	}
	res, err := jsonapi.Raw(httpReq, jsonapi.WithRequestHeader("Authorization", c.authorization()))
	if err != nil {
		return resp, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		return resp, jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	if err = json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return resp, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}

func (c Client) authorization() string {
	if c.token == "" {
		return ""
	}
	return "Bearer " + c.token
}
