package codec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/engine"
)

// PredictMethod is the full RPC name of the predictor's unary call. Request and
// response are google.protobuf.Struct messages.
const PredictMethod = "/wheel.predictor.v1.PredictorService/Predict"

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = time.Second

// #region types
// PredictRequest describes the spin the predictor is asked about.
type PredictRequest struct {
	A, B   int
	Groups []string // active group IDs
	Recent []int    // recent winning positions, oldest first
}

// Prediction is the predictor's answer.
type Prediction struct {
	Ready         bool
	Probabilities map[string]float64
}

// Observer receives lookup telemetry.
type Observer interface {
	RecordPredictorLookup(outcome string, elapsed time.Duration)
}

// #endregion types

// #region client-struct
// PredictorClient wraps the gRPC connection to the external ML predictor.
type PredictorClient struct {
	conn     grpc.ClientConnInterface
	closer   func() error
	timeout  time.Duration
	logger   zerolog.Logger
	observer Observer
}

// #endregion client-struct

// #region constructor
// NewPredictorClient connects to the predictor's gRPC server.
func NewPredictorClient(addr string, timeout time.Duration, logger zerolog.Logger) (*PredictorClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	c := NewPredictorClientWithConn(conn, timeout, logger)
	c.closer = conn.Close
	return c, nil
}

// NewPredictorClientWithConn creates a client over an injected connection.
// Used for testing without a real gRPC server.
func NewPredictorClientWithConn(conn grpc.ClientConnInterface, timeout time.Duration, logger zerolog.Logger) *PredictorClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PredictorClient{
		conn:    conn,
		timeout: timeout,
		logger:  logger.With().Str("component", "predictor").Logger(),
	}
}

// SetObserver attaches a telemetry observer.
func (c *PredictorClient) SetObserver(o Observer) {
	c.observer = o
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *PredictorClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// #endregion close

// #region predict
// Predict performs one bounded lookup.
func (c *PredictorClient) Predict(ctx context.Context, req PredictRequest) (Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	in, err := encodeRequest(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("encode request: %w", err)
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, PredictMethod, in, out); err != nil {
		return Prediction{}, fmt.Errorf("predict rpc: %w", err)
	}
	return decodePrediction(out)
}

// Lookup performs Predict and folds every failure, including timeout, into an
// unavailable input.
func (c *PredictorClient) Lookup(ctx context.Context, req PredictRequest) engine.AIInput {
	start := time.Now()
	p, err := c.Predict(ctx, req)
	elapsed := time.Since(start)

	outcome := "ready"
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded),
		status.Code(err) == codes.DeadlineExceeded:
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	case !p.Ready:
		outcome = "not_ready"
	}
	if c.observer != nil {
		c.observer.RecordPredictorLookup(outcome, elapsed)
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("outcome", outcome).Dur("elapsed", elapsed).Msg("predictor unavailable")
		return engine.AIInput{}
	}
	return engine.AIInput{Ready: p.Ready, Probabilities: p.Probabilities}
}

// AsyncLookup starts the single outstanding lookup for a cycle. The channel
// receives exactly one value.
func (c *PredictorClient) AsyncLookup(ctx context.Context, req PredictRequest) <-chan engine.AIInput {
	ch := make(chan engine.AIInput, 1)
	go func() {
		ch <- c.Lookup(ctx, req)
	}()
	return ch
}

// #endregion predict

// #region encoding
func encodeRequest(req PredictRequest) (*structpb.Struct, error) {
	groups := make([]any, len(req.Groups))
	for i, g := range req.Groups {
		groups[i] = g
	}
	recent := make([]any, len(req.Recent))
	for i, r := range req.Recent {
		recent[i] = float64(r)
	}
	return structpb.NewStruct(map[string]any{
		"a":      float64(req.A),
		"b":      float64(req.B),
		"groups": groups,
		"recent": recent,
	})
}

func decodePrediction(out *structpb.Struct) (Prediction, error) {
	fields := out.GetFields()
	p := Prediction{
		Ready:         fields["ready"].GetBoolValue(),
		Probabilities: make(map[string]float64),
	}
	probs := fields["probabilities"].GetStructValue()
	if probs == nil {
		if p.Ready {
			return Prediction{}, fmt.Errorf("ready response without probabilities")
		}
		return p, nil
	}
	for group, v := range probs.GetFields() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return Prediction{}, fmt.Errorf("probability for %q is not a number", group)
		}
		p.Probabilities[group] = n.NumberValue
	}
	return p, nil
}

// #endregion encoding
