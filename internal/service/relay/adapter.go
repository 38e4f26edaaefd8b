package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	relaymodel "github.com/zhouzirui/relaychat/backend/internal/model/relay"
	"github.com/zhouzirui/relaychat/backend/pkg/logger"
)

// Response is what the relay hands back to its caller: always a status and a
// JSON body, never an error.
type Response struct {
	Status int
	Body   []byte
}

// Adapter forwards questions to the configured backend gateway. It keeps no
// state between calls.
type Adapter struct {
	backendURL string
	binding    Binding
	client     *http.Client
}

// NewAdapter builds an adapter for one deployment target. An empty
// backendURL makes every valid request fail as Misconfigured.
func NewAdapter(backendURL string, binding Binding, client *http.Client) *Adapter {
	if client == nil {
		client = &http.Client{}
	}
	if binding == nil {
		binding = HandlerBinding{}
	}
	return &Adapter{
		backendURL: strings.TrimSpace(backendURL),
		binding:    binding,
		client:     client,
	}
}

// Binding returns the deployment binding of the adapter.
func (a *Adapter) Binding() Binding {
	return a.binding
}

// Handle runs one relay request end to end. Every failure is converted into
// a normalized {response} body with the matching status.
func (a *Adapter) Handle(ctx context.Context, method string, body []byte) Response {
	out, err := a.Forward(ctx, method, body)
	if err != nil {
		return a.failure(err)
	}
	return Response{Status: http.StatusOK, Body: out}
}

// Forward validates the inbound request, calls the backend gateway and
// returns the success body produced by the binding.
func (a *Adapter) Forward(ctx context.Context, method string, body []byte) ([]byte, error) {
	if method != http.MethodPost {
		return nil, newError(KindMethodNotAllowed, errors.Errorf("method %s not allowed", method))
	}

	var req relaymodel.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, newError(KindInvalidRequest, errors.Wrap(err, "decode request"))
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, newError(KindInvalidRequest, errors.New("question is required"))
	}
	if a.backendURL == "" {
		return nil, newError(KindMisconfigured, errors.New("backend gateway URL is not configured"))
	}

	payload, err := a.binding.Payload(req, body)
	if err != nil {
		return nil, newError(KindInvalidRequest, errors.Wrap(err, "encode backend request"))
	}

	upstream, err := a.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	return a.binding.Success(upstream)
}

func (a *Adapter) post(ctx context.Context, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.backendURL, bytes.NewReader(payload))
	if err != nil {
		return nil, newError(KindMisconfigured, errors.Wrap(err, "build backend request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, newError(KindTransport, errors.Wrap(err, "call backend gateway"))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(KindTransport, errors.Wrap(err, "read backend response"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(KindUpstream, errors.Errorf("backend gateway returned status %d", resp.StatusCode))
	}
	return data, nil
}

func (a *Adapter) failure(err error) Response {
	kind := KindOf(err)
	entry := logger.WithFields(logrus.Fields{
		"binding": a.binding.Name(),
		"kind":    kind,
	}).WithError(err)
	if kind.HTTPStatus() >= http.StatusInternalServerError {
		entry.Error("relay request failed")
	} else {
		entry.Warn("relay request rejected")
	}

	body, marshalErr := json.Marshal(relaymodel.NewReply(kind.Message()))
	if marshalErr != nil {
		body = []byte(`{"response":"` + ApologyMessage + `"}`)
	}
	return Response{Status: kind.HTTPStatus(), Body: body}
}
