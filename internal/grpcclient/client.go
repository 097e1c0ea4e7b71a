// Package grpcclient provides a client for a remote impression hasher
package grpcclient

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/internal/hasher"
	"github.com/RXminuS/impression-hash/internal/resilience"
	"github.com/RXminuS/impression-hash/internal/trace"
)

// Config tunes connection and fault handling.
type Config struct {
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	CallTimeout      time.Duration
	MaxMessageBytes  int
	Breaker          resilience.Config
	Retry            resilience.RetryConfig
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		KeepaliveTime:    DefaultKeepaliveTime,
		KeepaliveTimeout: DefaultKeepaliveTimeout,
		CallTimeout:      DefaultCallTimeout,
		MaxMessageBytes:  DefaultMaxMessageBytes,
		Breaker:          resilience.DefaultConfig(),
		Retry:            resilience.DefaultRetryConfig(),
	}
}

// Client calls the Hasher service with retries behind a circuit breaker.
type Client struct {
	conn    *grpc.ClientConn
	hasher  hasher.HasherClient
	breaker *resilience.Breaker
	cfg     Config
}

// New connects to the hasher at addr.
func New(addr string, cfg Config) (*Client, error) {
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = DefaultMaxMessageBytes
	}
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(cfg.MaxMessageBytes),
			grpc.MaxCallRecvMsgSize(cfg.MaxMessageBytes),
		),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
	)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeUnavailable, "connect to hasher at %s", addr)
	}
	c := NewWithConn(conn, cfg)
	c.conn = conn
	return c, nil
}

// NewWithConn builds a client on an existing connection. Close does not
// close conn.
func NewWithConn(conn grpc.ClientConnInterface, cfg Config) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	breaker := resilience.New(cfg.Breaker).WithHook(func(from, to resilience.State) {
		trace.Logger(context.Background()).Info("hasher circuit changed", "from", from.String(), "to", to.String())
	})
	return &Client{
		hasher:  hasher.NewHasherClient(conn),
		breaker: breaker,
		cfg:     cfg,
	}
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// State reports the circuit breaker state.
func (c *Client) State() resilience.State {
	return c.breaker.State()
}

// Hash returns the "changes" hash of an encoded image.
func (c *Client) Hash(ctx context.Context, image []byte) (string, error) {
	return call(ctx, c, func(ctx context.Context) (string, error) {
		resp, err := c.hasher.ImpressionHash(ctx, wrapperspb.Bytes(image))
		return resp.GetValue(), err
	})
}

// Larger returns the "larger" hash of an encoded image.
func (c *Client) Larger(ctx context.Context, image []byte) (string, error) {
	return call(ctx, c, func(ctx context.Context) (string, error) {
		resp, err := c.hasher.LargerHash(ctx, wrapperspb.Bytes(image))
		return resp.GetValue(), err
	})
}

// Similarity compares two "changes" hashes.
func (c *Client) Similarity(ctx context.Context, first, second string) (float64, error) {
	return call(ctx, c, func(ctx context.Context) (float64, error) {
		resp, err := c.hasher.Similarity(ctx, hasher.SimilarityRequest(first, second))
		return resp.GetValue(), err
	})
}

// call runs fn behind the breaker and retry policy with a per-attempt
// deadline, converting gRPC errors to AppErrors.
func call[T any](ctx context.Context, c *Client, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := trace.StartSpan(ctx, "grpcclient.call")
	defer span.End()

	var out T
	err := resilience.Retry(ctx, c.cfg.Retry, func() error {
		v, err := resilience.Do(c.breaker, func() (T, error) {
			callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
			defer cancel()
			v, err := fn(callCtx)
			if err != nil {
				return v, apperrors.FromGRPCError(err)
			}
			return v, nil
		})
		out = v
		return err
	})

	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, resilience.ErrOpen):
		err = apperrors.Wrap(err, apperrors.CodeUnavailable, "hasher circuit open")
	case errors.Is(err, context.Canceled):
		err = apperrors.Wrap(err, apperrors.CodeCancelled, "call cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		err = apperrors.Wrap(err, apperrors.CodeTimeout, "call deadline exceeded")
	}
	trace.Logger(ctx).Debug("hasher call failed", "error", err, "span", span)
	var zero T
	return zero, err
}
