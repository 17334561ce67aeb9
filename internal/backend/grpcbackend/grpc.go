// Package grpcbackend implements a backend that calls a unary gRPC method with
// a google.protobuf.Struct request and response.
package grpcbackend

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// Backend invokes a single full method (e.g. "/tasks.v1.Executor/Run").
type Backend struct {
	name     string
	endpoint string
	method   string
	timeout  time.Duration
	conn     *grpc.ClientConn
}

// New creates a gRPC backend. The connection is established lazily on the
// first call. Extra dial options are appended after the transport credentials.
func New(name, endpoint, method string, timeout time.Duration, extra ...grpc.DialOption) (*Backend, error) {
	if method == "" {
		return nil, fmt.Errorf("grpc backend %s: method is required", name)
	}

	target := endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}

	return &Backend{
		name:     name,
		endpoint: endpoint,
		method:   method,
		timeout:  timeout,
		conn:     conn,
	}, nil
}

// Name returns the backend's name.
func (b *Backend) Name() string {
	return b.name
}

// Invoke sends {id, kind, payload} as a Struct and returns the response
// Struct as a map.
func (b *Backend) Invoke(ctx context.Context, task domain.Task) domain.Outcome {
	req, err := requestStruct(task)
	if err != nil {
		return domain.TerminalFailure(fmt.Errorf("%s: encode request: %w", b.name, err))
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	resp := &structpb.Struct{}
	if err := b.conn.Invoke(ctx, b.method, req, resp); err != nil {
		return classify(fmt.Errorf("%s: %w", b.name, err))
	}
	return domain.Success(resp.AsMap())
}

// Close closes the underlying connection.
func (b *Backend) Close() error {
	return b.conn.Close()
}

func requestStruct(task domain.Task) (*structpb.Struct, error) {
	fields := map[string]any{
		"id":   task.ID,
		"kind": task.Kind,
	}
	if len(task.Payload) > 0 {
		var payload any
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return nil, fmt.Errorf("payload is not valid JSON: %w", err)
		}
		fields["payload"] = payload
	}
	return structpb.NewStruct(fields)
}

// classify maps a gRPC status to an outcome. A RetryInfo detail means the
// server asked to be retried, whatever the code.
func classify(err error) domain.Outcome {
	st, ok := status.FromError(err)
	if !ok {
		return domain.TransientFailure(err)
	}

	for _, d := range st.Details() {
		if _, ok := d.(*errdetails.RetryInfo); ok {
			return domain.TransientFailure(err)
		}
	}

	switch st.Code() {
	case codes.Unavailable,
		codes.DeadlineExceeded,
		codes.ResourceExhausted,
		codes.Aborted,
		codes.Internal,
		codes.Unknown:
		return domain.TransientFailure(err)
	default:
		return domain.TerminalFailure(err)
	}
}
