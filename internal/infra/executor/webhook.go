package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"quorumd/internal/domain"
)

const maxErrorBodyBytes = 4 * 1024

// CallError classifies a failed executor call for the attempt record.
type CallError struct {
	Code    string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("executor call failed (%s): %s", e.Code, e.Message)
}

func (e *CallError) ErrorCode() string {
	return e.Code
}

// Webhook delivers finalized actions to the external executor service as
// a single HTTP POST. It performs no retries itself; retry is an operator
// decision recorded as a separate attempt.
type Webhook struct {
	url    string
	token  string
	httpDo func(*http.Request) (*http.Response, error)
}

func NewWebhook(url, token string, httpClient *http.Client) (*Webhook, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("executor url is required")
	}
	doer := http.DefaultClient.Do
	if httpClient != nil {
		doer = httpClient.Do
	}
	return &Webhook{url: url, token: token, httpDo: doer}, nil
}

type executeRequest struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

func (w *Webhook) Execute(ctx context.Context, action domain.ActionKind, payload json.RawMessage) error {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	body, err := json.Marshal(executeRequest{Action: string(action), Payload: payload})
	if err != nil {
		return &CallError{Code: domain.ExecErrorRemote, Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &CallError{Code: domain.ExecErrorRemote, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.httpDo(req)
	if err != nil {
		return &CallError{Code: transportErrorCode(ctx, err), Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	code := domain.ExecErrorRemote
	if resp.StatusCode >= 500 {
		code = domain.ExecErrorRemote5x
	}
	return &CallError{
		Code:    code,
		Message: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
	}
}

func transportErrorCode(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ExecErrorTimeout
	}
	return domain.ExecErrorNetwork
}
