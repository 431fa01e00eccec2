package codec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region mock
// fakeConn answers Invoke with a canned Struct, an error, or by blocking until
// the context expires.
type fakeConn struct {
	resp  map[string]any
	err   error
	block bool

	method string
	req    *structpb.Struct
}

func (f *fakeConn) Invoke(ctx context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	f.method = method
	f.req = args.(*structpb.Struct)
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.err != nil {
		return f.err
	}
	s, err := structpb.NewStruct(f.resp)
	if err != nil {
		return err
	}
	proto.Merge(reply.(*structpb.Struct), s)
	return nil
}

func (f *fakeConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("streams not supported")
}

type lookupLog struct{ outcomes []string }

func (l *lookupLog) RecordPredictorLookup(outcome string, _ time.Duration) {
	l.outcomes = append(l.outcomes, outcome)
}

func newClient(conn *fakeConn, timeout time.Duration) *PredictorClient {
	return NewPredictorClientWithConn(conn, timeout, zerolog.Nop())
}

// #endregion mock

// #region constructor-tests
func TestNewPredictorClientLazyDial(t *testing.T) {
	client, err := NewPredictorClient("localhost:0", 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	if client.timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", client.timeout)
	}
	if err := client.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	c := newClient(&fakeConn{}, time.Second)
	if err := c.Close(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

// #endregion constructor-tests

// #region predict-tests
func TestPredict_Success(t *testing.T) {
	conn := &fakeConn{resp: map[string]any{
		"ready":         true,
		"probabilities": map[string]any{"diff": 0.42, "sum": 0.1},
	}}
	c := newClient(conn, time.Second)

	p, err := c.Predict(context.Background(), PredictRequest{A: 10, B: 15, Groups: []string{"diff", "sum"}, Recent: []int{5, 32}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Ready || p.Probabilities["diff"] != 0.42 || p.Probabilities["sum"] != 0.1 {
		t.Errorf("unexpected prediction: %+v", p)
	}
	if conn.method != PredictMethod {
		t.Errorf("method = %s", conn.method)
	}
	if got := conn.req.GetFields()["a"].GetNumberValue(); got != 10 {
		t.Errorf("request a = %v", got)
	}
	if got := len(conn.req.GetFields()["groups"].GetListValue().GetValues()); got != 2 {
		t.Errorf("request groups = %d", got)
	}
}

func TestPredict_NotReady(t *testing.T) {
	c := newClient(&fakeConn{resp: map[string]any{"ready": false}}, time.Second)
	p, err := c.Predict(context.Background(), PredictRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Ready {
		t.Error("expected not ready")
	}
}

func TestPredict_MalformedProbability(t *testing.T) {
	c := newClient(&fakeConn{resp: map[string]any{
		"ready":         true,
		"probabilities": map[string]any{"diff": "high"},
	}}, time.Second)
	if _, err := c.Predict(context.Background(), PredictRequest{}); err == nil {
		t.Fatal("expected error for non-numeric probability")
	}
}

func TestPredict_RPCError(t *testing.T) {
	c := newClient(&fakeConn{err: errors.New("unavailable")}, time.Second)
	if _, err := c.Predict(context.Background(), PredictRequest{}); err == nil {
		t.Fatal("expected error")
	}
}

// #endregion predict-tests

// #region lookup-tests
func TestLookup_TimeoutIsUnavailable(t *testing.T) {
	log := &lookupLog{}
	c := newClient(&fakeConn{block: true}, 20*time.Millisecond)
	c.SetObserver(log)

	in := c.Lookup(context.Background(), PredictRequest{})
	if in.Ready || in.Probabilities != nil {
		t.Errorf("expected unavailable input, got %+v", in)
	}
	if len(log.outcomes) != 1 || log.outcomes[0] != "timeout" {
		t.Errorf("outcomes = %v", log.outcomes)
	}
}

func TestLookup_StatusDeadlineIsTimeout(t *testing.T) {
	log := &lookupLog{}
	c := newClient(&fakeConn{err: status.Error(codes.DeadlineExceeded, "context deadline exceeded")}, time.Second)
	c.SetObserver(log)

	if in := c.Lookup(context.Background(), PredictRequest{}); in.Ready {
		t.Error("expected not ready")
	}
	if len(log.outcomes) != 1 || log.outcomes[0] != "timeout" {
		t.Errorf("outcomes = %v", log.outcomes)
	}
}

func TestLookup_ErrorIsUnavailable(t *testing.T) {
	log := &lookupLog{}
	c := newClient(&fakeConn{err: errors.New("boom")}, time.Second)
	c.SetObserver(log)

	if in := c.Lookup(context.Background(), PredictRequest{}); in.Ready {
		t.Error("expected not ready")
	}
	if len(log.outcomes) != 1 || log.outcomes[0] != "error" {
		t.Errorf("outcomes = %v", log.outcomes)
	}
}

func TestAsyncLookup_DeliversOnce(t *testing.T) {
	c := newClient(&fakeConn{resp: map[string]any{
		"ready":         true,
		"probabilities": map[string]any{"diff": 0.5},
	}}, time.Second)

	select {
	case in := <-c.AsyncLookup(context.Background(), PredictRequest{Groups: []string{"diff"}}):
		if !in.Ready || in.Probabilities["diff"] != 0.5 {
			t.Errorf("unexpected input: %+v", in)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("async lookup did not deliver")
	}
}

// #endregion lookup-tests
