// Package submit delivers form submissions to the remote form-processing
// endpoint and decodes its JSON reply.
//
// A submission is tried once as a readable POST. If that delivery fails and
// fallback is enabled, the identical payload is sent again as an opaque POST
// and then as a GET whose reply becomes the result.
package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/formrelay/internal/models"
)

const (
	// HeaderSubmissionID carries the ID shared by every attempt of one submission.
	HeaderSubmissionID = "X-Submission-ID"

	contentTypeForm = "application/x-www-form-urlencoded"
	actionField     = "action"
)

// Config describes the endpoint a Submitter talks to.
type Config struct {
	// Endpoint is the absolute URL of the form-processing service.
	Endpoint string
	// Origin is the origin the form is served from. When set, primary
	// responses must allow it via Access-Control-Allow-Origin.
	Origin string
	// Fallback enables the opaque POST + GET tier.
	Fallback bool
}

// Submitter sends submissions to a single endpoint. It keeps no state
// between calls and is safe for concurrent use.
type Submitter struct {
	cfg      Config
	endpoint *url.URL
	client   *http.Client
	log      *zap.Logger
}

// New validates cfg and returns a Submitter using client for every request.
// A nil client falls back to http.DefaultClient, a nil log to a no-op logger.
func New(cfg Config, client *http.Client, log *zap.Logger) (*Submitter, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute http(s) URL", cfg.Endpoint)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Submitter{cfg: cfg, endpoint: u, client: client, log: log}, nil
}

// Submit delivers action and fields to the endpoint and returns its reply.
//
// A reply with status "error" is returned as a result, not as an error.
// Any failure to obtain a reply is returned wrapped in ErrConnectivity
// with the cause (ErrTransport, ErrCrossOrigin, *StatusError,
// ErrMalformedResponse or a context error) still reachable through errors.Is/As.
func (s *Submitter) Submit(ctx context.Context, action models.Action, fields map[string]string) (*models.SubmissionResult, error) {
	req := models.SubmissionRequest{Action: action, Fields: fields}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log := s.log.With(zap.String("submission_id", id), zap.String("action", string(action)))

	if _, ok := fields[actionField]; ok {
		log.Warn("form field named action is overridden by the action tag")
	}
	payload := Encode(req)

	log.Debug("delivering submission", zap.String("tier", "primary"))
	res, err := s.primary(ctx, id, payload)
	if err == nil {
		return res, nil
	}

	if !s.cfg.Fallback || errors.Is(err, ErrMalformedResponse) || ctx.Err() != nil {
		log.Error("submission failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}

	log.Warn("primary delivery failed, using fallback", zap.Error(err))
	res, ferr := s.fallback(ctx, id, payload, log)
	if ferr != nil {
		log.Error("fallback delivery failed", zap.Error(ferr))
		return nil, fmt.Errorf("%w: %w", ErrConnectivity, ferr)
	}
	return res, nil
}

// Encode returns the form-urlencoded payload for req.
//
// The action tag always wins over a form field that happens to be named
// "action": such a field is dropped rather than allowed to retarget the
// submission, unlike a plain object spread of the fields over the tag.
func Encode(req models.SubmissionRequest) string {
	values := make(url.Values, len(req.Fields)+1)
	for k, v := range req.Fields {
		if k == actionField {
			continue
		}
		values.Set(k, v)
	}
	values.Set(actionField, string(req.Action))
	return values.Encode()
}

func (s *Submitter) primary(ctx context.Context, id, payload string) (*models.SubmissionResult, error) {
	req, err := s.newRequest(ctx, http.MethodPost, s.endpoint.String(), id, strings.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentTypeForm)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer drain(resp)

	if !s.readable(resp) {
		return nil, ErrCrossOrigin
	}
	if !success(resp.StatusCode) {
		return nil, &StatusError{Method: http.MethodPost, Code: resp.StatusCode}
	}
	return decode(resp.Body)
}

func (s *Submitter) fallback(ctx context.Context, id, payload string, log *zap.Logger) (*models.SubmissionResult, error) {
	log.Debug("delivering submission", zap.String("tier", "opaque"))
	if err := s.deliverOpaque(ctx, id, payload); err != nil {
		log.Warn("opaque delivery failed", zap.Error(err))
	}

	u := *s.endpoint
	if u.RawQuery != "" {
		u.RawQuery += "&" + payload
	} else {
		u.RawQuery = payload
	}

	log.Debug("delivering submission", zap.String("tier", "query"))
	req, err := s.newRequest(ctx, http.MethodGet, u.String(), id, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer drain(resp)

	if !success(resp.StatusCode) {
		return nil, &StatusError{Method: http.MethodGet, Code: resp.StatusCode}
	}
	return decode(resp.Body)
}

// deliverOpaque posts payload and discards the response without reading it.
func (s *Submitter) deliverOpaque(ctx context.Context, id, payload string) error {
	req, err := s.newRequest(ctx, http.MethodPost, s.endpoint.String(), id, strings.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentTypeForm)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	drain(resp)
	return nil
}

func (s *Submitter) newRequest(ctx context.Context, method, target, id string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderSubmissionID, id)
	if s.cfg.Origin != "" {
		req.Header.Set("Origin", s.cfg.Origin)
	}
	return req, nil
}

// readable applies the browser rule for reading a cross-origin response.
func (s *Submitter) readable(resp *http.Response) bool {
	if s.cfg.Origin == "" {
		return true
	}
	allowed := resp.Header.Get("Access-Control-Allow-Origin")
	return allowed == "*" || allowed == s.cfg.Origin
}

// decode reads exactly one result object; anything after it but whitespace
// makes the body malformed.
func decode(r io.Reader) (*models.SubmissionResult, error) {
	var res models.SubmissionResult
	dec := json.NewDecoder(r)
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after result", ErrMalformedResponse)
	}
	if res.Status != models.StatusSuccess && res.Status != models.StatusError {
		return nil, fmt.Errorf("%w: status %q", ErrMalformedResponse, res.Status)
	}
	return &res, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func success(code int) bool {
	return code >= 200 && code < 300
}
