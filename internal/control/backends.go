package control

import (
	"fmt"

	"github.com/vietddude/dispatcher/internal/backend"
	"github.com/vietddude/dispatcher/internal/backend/grpcbackend"
	"github.com/vietddude/dispatcher/internal/backend/httpbackend"
	"github.com/vietddude/dispatcher/internal/backend/kafkabackend"
	"github.com/vietddude/dispatcher/internal/core/config"
)

// BuildBackends creates one invoker per configured backend and registers it.
// Already created invokers are closed if a later one fails.
func BuildBackends(cfgs []config.BackendConfig) (*backend.Registry, error) {
	reg := backend.NewRegistry()

	for _, bc := range cfgs {
		inv, err := newInvoker(bc)
		if err != nil {
			_ = reg.Close()
			return nil, fmt.Errorf("backend %s: %w", bc.ID, err)
		}
		if err := reg.Register(bc.ID, inv, bc.IsEnabled()); err != nil {
			if c, ok := inv.(backend.Closer); ok {
				_ = c.Close()
			}
			_ = reg.Close()
			return nil, err
		}
	}
	return reg, nil
}

func newInvoker(bc config.BackendConfig) (backend.Invoker, error) {
	switch bc.Type {
	case config.BackendHTTP:
		return httpbackend.New(bc.ID, bc.URL, bc.Timeout, bc.Headers,
			httpbackend.WithMaxResponseBytes(bc.MaxResponseBytes)), nil
	case config.BackendGRPC:
		return grpcbackend.New(bc.ID, bc.URL, bc.Method, bc.Timeout)
	case config.BackendKafka:
		return kafkabackend.New(bc.ID, bc.Brokers, bc.Topic, bc.Timeout)
	default:
		return nil, fmt.Errorf("unknown backend type %q", bc.Type)
	}
}
