// Package socketio provides the SocketIOExporter module, which pushes the
// artifacts of its dependencies to a socket.io server and optionally waits
// for the server to acknowledge them with an event.
package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/specialistvlad/recipegrid/internal/ctxlog"
	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/registry"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Name is the module kind recipes refer to.
const Name = "SocketIOExporter"

// Module implements registry.Registrant for this package.
type Module struct{}

// Register registers the exporter with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Name, func() module.Module { return &Exporter{} })
}

// Exporter emits one event carrying the upstream artifacts.
type Exporter struct {
	baseURL            string
	path               string
	namespace          string
	emitEvent          string
	onEvent            string
	extra              any
	insecureSkipVerify bool
}

// opResult is a private struct to safely pass results through the done channel.
type opResult struct {
	response any
	err      error
}

// SetUp reads "url", "emit_event", and the optional "namespace", "on_event",
// "emit_data" and "insecure_skip_verify" arguments.
func (e *Exporter) SetUp(ctx context.Context, args module.Args) error {
	raw, err := args.String("url", "")
	if err != nil {
		return err
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("url: %q is not a valid URL", raw)
	}
	e.baseURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	e.path = u.Path
	if e.path == "" || e.path == "/" {
		e.path = "/socket.io/"
	}

	if e.namespace, err = args.String("namespace", "/"); err != nil {
		return err
	}
	if e.emitEvent, err = args.String("emit_event", ""); err != nil {
		return err
	}
	if e.emitEvent == "" {
		return errors.New("emit_event: an event name is required")
	}
	if e.onEvent, err = args.String("on_event", ""); err != nil {
		return err
	}
	if e.extra, err = args.Native("emit_data"); err != nil {
		return err
	}
	e.insecureSkipVerify, err = args.Bool("insecure_skip_verify", false)
	return err
}

// payload flattens the inputs into plain JSON values the client can encode.
func (e *Exporter) payload(in module.Inputs) (map[string]any, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var artifacts map[string]any
	if err := json.Unmarshal(raw, &artifacts); err != nil {
		return nil, err
	}
	out := map[string]any{"artifacts": artifacts}
	if e.extra != nil {
		out["data"] = e.extra
	}
	return out, nil
}

// Process produces {"emitted": true, "response": any}. Without on_event the
// module succeeds as soon as the event is emitted.
func (e *Exporter) Process(ctx context.Context, in module.Inputs) (module.Artifacts, error) {
	logger := ctxlog.FromContext(ctx).With("url", e.baseURL, "namespace", e.namespace, "emitEvent", e.emitEvent, "onEvent", e.onEvent)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	data, err := e.payload(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifacts: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(e.path)
	if e.insecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(e.baseURL, opts)
	io := manager.Socket(e.namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	var connected atomic.Bool
	done := make(chan opResult, 1)
	send := func(r opResult) {
		select {
		case done <- r:
		default:
		}
	}

	io.Once(types.EventName("connect"), func(...any) {
		connected.Store(true)
		logger.Info("Successfully connected", "sid", io.Id())
		io.Emit(e.emitEvent, data)
		logger.Info("Emitted artifacts", "dependencies", in.Names())
		if e.onEvent == "" {
			send(opResult{})
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if cerr, ok := errs[0].(error); ok {
				err = cerr
			}
		}
		send(opResult{err: fmt.Errorf("socket.io connection failed: %w", err)})
	})

	if e.onEvent != "" {
		io.Once(types.EventName(e.onEvent), func(args ...any) {
			var response any
			if len(args) > 0 {
				response = args[0]
			}
			send(opResult{response: response})
		})
	}

	io.Connect()

	select {
	case <-ctx.Done():
		if connected.Load() {
			logger.Warn("Context ended after connecting while waiting for acknowledgement")
		} else {
			logger.Warn("Context ended while waiting for initial connection")
		}
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return module.Artifacts{"emitted": true, "response": res.response}, nil
	}
}
