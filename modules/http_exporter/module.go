// Package http_exporter provides the HTTPExporter module, which sends the
// artifacts of its dependencies as one JSON document to a remote endpoint.
// PUT to a pre-signed object storage URL works as well as POST to an API.
package http_exporter

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/specialistvlad/recipegrid/internal/ctxlog"
	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/registry"
)

// Name is the module kind recipes refer to.
const Name = "HTTPExporter"

// Module implements registry.Registrant for this package. Client defaults to
// a shared http.Client so connections are reused across runs.
type Module struct {
	Client *http.Client
}

var defaultClient = &http.Client{}

// Register registers the exporter with the registry.
func (m *Module) Register(r *registry.Registry) {
	client := m.Client
	if client == nil {
		client = defaultClient
	}
	r.Register(Name, func() module.Module { return &Exporter{client: client} })
}

// Exporter uploads upstream artifacts.
type Exporter struct {
	client  *http.Client
	url     string
	method  string
	headers map[string]string
}

// Document is the body the exporter sends.
type Document struct {
	Artifacts map[string]module.Artifacts `json:"artifacts"`
}

// SetUp reads "url", "method" (POST or PUT), optional "headers" and
// "insecure_skip_verify".
func (e *Exporter) SetUp(ctx context.Context, args module.Args) error {
	if e.client == nil {
		e.client = defaultClient
	}
	var err error
	if e.url, err = args.String("url", ""); err != nil {
		return err
	}
	u, err := url.Parse(e.url)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url: %q is not an http(s) URL", e.url)
	}

	if e.method, err = args.String("method", http.MethodPost); err != nil {
		return err
	}
	e.method = strings.ToUpper(e.method)
	if e.method != http.MethodPost && e.method != http.MethodPut {
		return fmt.Errorf("method: unsupported method '%s'", e.method)
	}

	if err := args.Decode("headers", &e.headers); err != nil {
		return err
	}

	insecure, err := args.Bool("insecure_skip_verify", false)
	if err != nil {
		return err
	}
	if insecure {
		ctxlog.FromContext(ctx).Warn("Skipping TLS certificate verification", "url", e.url)
		e.client = &http.Client{
			Timeout:   e.client.Timeout,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}, //nolint:gosec // opt-in per recipe
		}
	}
	return nil
}

// Process produces {"status": string, "status_code": int, "bytes": int}.
func (e *Exporter) Process(ctx context.Context, in module.Inputs) (module.Artifacts, error) {
	logger := ctxlog.FromContext(ctx).With("url", e.url, "method", e.method)

	body, err := json.Marshal(Document{Artifacts: in})
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifacts: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, e.method, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	logger.Info("Uploading artifacts", "size", len(body), "dependencies", in.Names())
	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, module.Failf(module.KindError, "upload failed with status: %s", resp.Status)
	}
	logger.Info("Successfully uploaded artifacts", "status", resp.Status)

	return module.Artifacts{
		"status":      resp.Status,
		"status_code": resp.StatusCode,
		"bytes":       len(body),
	}, nil
}
