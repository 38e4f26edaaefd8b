package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/zhouzirui/relaychat/backend/internal/model/chat"
	relaymodel "github.com/zhouzirui/relaychat/backend/internal/model/relay"
	"github.com/zhouzirui/relaychat/backend/pkg/logger"
)

// Result is the tagged outcome of a relay call: either reply text or a
// failure kind.
type Result struct {
	Text    string
	Failure Kind
}

// Ok reports whether the call produced a reply.
func (r Result) Ok() bool {
	return r.Failure == ""
}

func success(text string) Result {
	return Result{Text: text}
}

func failed(kind Kind) Result {
	return Result{Failure: kind}
}

// Client packages a conversation into a relay request. It never returns an
// error; every failure becomes a Result.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a caller for the relay at endpoint. A nil httpClient
// means no client-side timeout.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

// BuildRequest derives the relay request from an ordered message list: the
// last message is the question and all contents joined by single spaces are
// the context.
func BuildRequest(messages []chat.Message) relaymodel.Request {
	contents := make([]string, len(messages))
	for i, m := range messages {
		contents[i] = m.Content
	}
	context := strings.Join(contents, " ")

	var question string
	if len(messages) > 0 {
		question = messages[len(messages)-1].Content
	}
	return relaymodel.Request{Question: question, Context: &context}
}

// Call sends messages to the relay and unpacks the reply.
func (c *Client) Call(ctx context.Context, messages []chat.Message) Result {
	if len(messages) == 0 {
		return failed(KindInvalidRequest)
	}

	payload, err := json.Marshal(BuildRequest(messages))
	if err != nil {
		logger.Errorf("[relay-client] encode request: %v", err)
		return failed(KindInvalidRequest)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		logger.Errorf("[relay-client] build request for %q: %v", c.endpoint, err)
		return failed(KindMisconfigured)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warnf("[relay-client] call relay: %v", err)
		return failed(KindTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		logger.Warnf("[relay-client] relay answered status %d", resp.StatusCode)
		return failed(kindForStatus(resp.StatusCode))
	}

	var reply relaymodel.Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		logger.Warnf("[relay-client] %v", errors.Wrap(err, "decode relay reply"))
		return failed(KindTransport)
	}
	if reply.Response == nil || *reply.Response == "" {
		return success(NoResponseMessage)
	}
	return success(*reply.Response)
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindInvalidRequest
	case http.StatusMethodNotAllowed:
		return KindMethodNotAllowed
	default:
		return KindUpstream
	}
}
