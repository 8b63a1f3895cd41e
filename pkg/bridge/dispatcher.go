package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/germanamz/opwire/pkg/ops"
)

// Dispatcher resolves operation names against a read-only registry,
// validates arguments, and invokes handlers. It performs exactly one
// invocation per request; retry policy belongs to the caller.
// Dispatcher is safe for concurrent use because the registry is read-only.
type Dispatcher struct {
	registry *ops.Registry
	timeout  time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds each handler invocation. A handler exceeding the bound
// yields Failure{timeout}; the handler goroutine is left to finish on its
// own, since handlers are not guaranteed to be interruptible.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.timeout = d }
}

// NewDispatcher creates a Dispatcher over the given registry.
func NewDispatcher(r *ops.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{registry: r}
	for _, o := range opts {
		o(d)
	}

	return d
}

// Operations returns the advertisement for every registered operation,
// sorted by name.
func (d *Dispatcher) Operations() []OpInfo {
	specs := d.registry.List()
	out := make([]OpInfo, len(specs))
	for i, s := range specs {
		out[i] = OpInfo{
			Name:        s.Name,
			Description: s.Description,
			Schema:      s.JSONSchema(),
		}
	}

	return out
}

// Dispatch executes one request end to end: lookup, validate, invoke. Every
// outcome is a Result; no error or panic from a handler propagates past
// this method.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	spec, err := d.registry.Lookup(req.Operation)
	if err != nil {
		return Failure(KindUnknownOperation, "unknown operation %q", req.Operation)
	}

	args, err := ops.Validate(spec, req.Arguments)
	if err != nil {
		var ve *ops.ValidationError
		if errors.As(err, &ve) {
			return Failure(KindValidationError, "%s", ve.Error())
		}

		return Failure(KindValidationError, "%s", err.Error())
	}

	return d.invoke(ctx, spec, args)
}

// handlerOutcome carries a handler's return values across the invocation
// goroutine boundary.
type handlerOutcome struct {
	payload any
	err     error
}

// invoke runs the handler under the configured timeout, converting errors
// and panics into Failure envelopes.
func (d *Dispatcher) invoke(ctx context.Context, spec ops.Spec, args map[string]any) Result {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	done := make(chan handlerOutcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- handlerOutcome{err: fmt.Errorf("handler panic: %v", rec)}
			}
		}()

		payload, err := spec.Handler(ctx, args)
		done <- handlerOutcome{payload: payload, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return Failure(KindHandlerError, "%s: %s", spec.Name, sanitizeMessage(out.err.Error()))
		}

		return Success(out.payload)

	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Failure(KindTimeout, "%s: invocation exceeded %s", spec.Name, d.timeout)
		}

		return Failure(KindTimeout, "%s: invocation cancelled", spec.Name)
	}
}
