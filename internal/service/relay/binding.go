package relay

import (
	"encoding/json"

	"github.com/pkg/errors"

	relaymodel "github.com/zhouzirui/relaychat/backend/internal/model/relay"
)

// Binding adapts the canonical relay contract to one deployment target. It
// decides what is forwarded to the backend gateway and what a successful
// upstream body turns into.
type Binding interface {
	Name() string
	Payload(req relaymodel.Request, raw []byte) ([]byte, error)
	Success(upstream []byte) ([]byte, error)
}

// HandlerBinding backs the handler-style endpoint: it forwards
// {question, context} and answers with {response}.
type HandlerBinding struct{}

func (HandlerBinding) Name() string { return "handler" }

func (HandlerBinding) Payload(req relaymodel.Request, _ []byte) ([]byte, error) {
	return json.Marshal(relaymodel.Request{Question: req.Question, Context: req.Context})
}

func (HandlerBinding) Success(upstream []byte) ([]byte, error) {
	var parsed relaymodel.Reply
	if err := json.Unmarshal(upstream, &parsed); err != nil {
		return nil, newError(KindTransport, errors.Wrap(err, "decode backend response"))
	}
	return json.Marshal(relaymodel.Reply{Response: parsed.Response})
}

// FunctionBinding backs the function-style endpoint: the request body goes
// to the backend verbatim and the backend's JSON comes back verbatim.
type FunctionBinding struct{}

func (FunctionBinding) Name() string { return "function" }

func (FunctionBinding) Payload(_ relaymodel.Request, raw []byte) ([]byte, error) {
	return raw, nil
}

func (FunctionBinding) Success(upstream []byte) ([]byte, error) {
	if !json.Valid(upstream) {
		return nil, newError(KindTransport, errors.New("backend returned invalid JSON"))
	}
	return upstream, nil
}
