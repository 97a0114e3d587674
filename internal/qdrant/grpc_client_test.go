package qdrant

import (
	"context"
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/helixdesk/tenantstore/internal/logging"
)

func TestClientConfig_ApplyDefaults(t *testing.T) {
	tests := []struct {
		name   string
		config *ClientConfig
		check  func(t *testing.T, cfg *ClientConfig)
	}{
		{
			name:   "empty config gets all defaults",
			config: &ClientConfig{},
			check: func(t *testing.T, cfg *ClientConfig) {
				assert.Equal(t, "localhost", cfg.Host)
				assert.Equal(t, 6334, cfg.Port)
				assert.False(t, cfg.UseTLS)
				assert.Equal(t, 50*1024*1024, cfg.MaxMessageSize)
				assert.Equal(t, 5*time.Second, cfg.DialTimeout)
				assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
				assert.Equal(t, 3, cfg.RetryAttempts)
			},
		},
		{
			name: "partial config preserves set values",
			config: &ClientConfig{
				Host:   "qdrant.internal",
				Port:   6335,
				APIKey: "secret",
			},
			check: func(t *testing.T, cfg *ClientConfig) {
				assert.Equal(t, "qdrant.internal", cfg.Host)
				assert.Equal(t, 6335, cfg.Port)
				assert.Equal(t, "secret", cfg.APIKey)
				assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.ApplyDefaults()
			tt.check(t, tt.config)
		})
	}
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *ClientConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: &ClientConfig{
				Host:           "localhost",
				Port:           6334,
				MaxMessageSize: 1024,
			},
			wantErr: false,
		},
		{
			name: "missing host",
			config: &ClientConfig{
				Port:           6334,
				MaxMessageSize: 1024,
			},
			wantErr: true,
			errMsg:  "host is required",
		},
		{
			name: "invalid port - zero",
			config: &ClientConfig{
				Host:           "localhost",
				Port:           0,
				MaxMessageSize: 1024,
			},
			wantErr: true,
			errMsg:  "invalid port",
		},
		{
			name: "invalid port - too large",
			config: &ClientConfig{
				Host:           "localhost",
				Port:           65536,
				MaxMessageSize: 1024,
			},
			wantErr: true,
			errMsg:  "invalid port",
		},
		{
			name: "invalid max message size",
			config: &ClientConfig{
				Host:           "localhost",
				Port:           6334,
				MaxMessageSize: 0,
			},
			wantErr: true,
			errMsg:  "invalid max message size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDistanceConversion(t *testing.T) {
	tests := []struct {
		name     string
		distance Distance
		want     qdrant.Distance
	}{
		{"cosine", DistanceCosine, qdrant.Distance_Cosine},
		{"euclid", DistanceEuclid, qdrant.Distance_Euclid},
		{"dot", DistanceDot, qdrant.Distance_Dot},
		{"unknown falls back to cosine", Distance("manhattan"), qdrant.Distance_Cosine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toQdrantDistance(tt.distance)
			assert.Equal(t, tt.want, got)
		})
	}

	// Round trip for the known metrics.
	for _, d := range []Distance{DistanceCosine, DistanceEuclid, DistanceDot} {
		assert.Equal(t, d, fromQdrantDistance(toQdrantDistance(d)))
	}
}

func TestConvertToQdrantPoint(t *testing.T) {
	point := &Point{
		ID:     "550e8400-e29b-41d4-a716-446655440000",
		Vector: []float32{0.1, 0.2, 0.3},
		Payload: map[string]interface{}{
			"tenant_id":   "acme",
			"chunk_index": 7,
			"score":       0.91,
			"archived":    false,
		},
	}

	qp := convertToQdrantPoint(point)

	require.NotNil(t, qp)
	assert.Equal(t, point.ID, qp.Id.GetUuid())
	assert.Len(t, qp.Payload, 4)
	assert.Equal(t, "acme", qp.Payload["tenant_id"].GetStringValue())
	assert.Equal(t, int64(7), qp.Payload["chunk_index"].GetIntegerValue())
	assert.Equal(t, 0.91, qp.Payload["score"].GetDoubleValue())
	assert.False(t, qp.Payload["archived"].GetBoolValue())
}

func TestConvertToQdrantFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		check  func(t *testing.T, qf *qdrant.Filter)
	}{
		{
			name:   "nil filter",
			filter: nil,
			check: func(t *testing.T, qf *qdrant.Filter) {
				assert.Nil(t, qf)
			},
		},
		{
			name: "must match and range",
			filter: &Filter{
				Must: []Condition{
					{Field: "tenant_id", Match: "acme"},
					{Field: "score", Range: &RangeCondition{Gte: ptrFloat64(0.5)}},
				},
			},
			check: func(t *testing.T, qf *qdrant.Filter) {
				require.NotNil(t, qf)
				require.Len(t, qf.Must, 2)

				match := qf.Must[0].GetField()
				assert.Equal(t, "tenant_id", match.Key)
				assert.Equal(t, "acme", match.Match.GetKeyword())

				rng := qf.Must[1].GetField()
				assert.Equal(t, "score", rng.Key)
				assert.Equal(t, 0.5, *rng.Range.Gte)
			},
		},
		{
			name: "should and must_not",
			filter: &Filter{
				Should:  []Condition{{Field: "tag", Match: "urgent"}},
				MustNot: []Condition{{Field: "status", Match: "archived"}},
			},
			check: func(t *testing.T, qf *qdrant.Filter) {
				require.NotNil(t, qf)
				require.Len(t, qf.Should, 1)
				require.Len(t, qf.MustNot, 1)
				assert.Equal(t, "urgent", qf.Should[0].GetField().Match.GetKeyword())
				assert.Equal(t, "archived", qf.MustNot[0].GetField().Match.GetKeyword())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, convertToQdrantFilter(tt.filter))
		})
	}
}

func TestExtractPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]*qdrant.Value
		want    map[string]interface{}
	}{
		{
			name:    "nil payload",
			payload: nil,
			want:    nil,
		},
		{
			name: "mixed value types",
			payload: map[string]*qdrant.Value{
				"string": {Kind: &qdrant.Value_StringValue{StringValue: "test"}},
				"int":    {Kind: &qdrant.Value_IntegerValue{IntegerValue: 42}},
				"float":  {Kind: &qdrant.Value_DoubleValue{DoubleValue: 3.14}},
				"bool":   {Kind: &qdrant.Value_BoolValue{BoolValue: true}},
			},
			want: map[string]interface{}{
				"string": "test",
				"int":    int64(42),
				"float":  3.14,
				"bool":   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractPayload(tt.payload))
		})
	}
}

func TestExtractPointID(t *testing.T) {
	tests := []struct {
		name string
		id   *qdrant.PointId
		want string
	}{
		{"nil id", nil, ""},
		{"uuid id", qdrant.NewIDUUID("550e8400-e29b-41d4-a716-446655440000"), "550e8400-e29b-41d4-a716-446655440000"},
		{"numeric id", qdrant.NewIDNum(12345), "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractPointID(tt.id))
		})
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"unavailable", status.Error(codes.Unavailable, "service unavailable"), true},
		{"deadline exceeded", status.Error(codes.DeadlineExceeded, "timeout"), true},
		{"aborted", status.Error(codes.Aborted, "aborted"), true},
		{"resource exhausted", status.Error(codes.ResourceExhausted, "too many requests"), true},
		{"not found", status.Error(codes.NotFound, "not found"), false},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad request"), false},
		{"permission denied", status.Error(codes.PermissionDenied, "forbidden"), false},
		{"already exists", status.Error(codes.AlreadyExists, "already exists"), false},
		{"non-grpc error", assert.AnError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransientError(tt.err))
		})
	}
}

func TestRetryOperation_Logging(t *testing.T) {
	tests := []struct {
		name          string
		operation     func() error
		retryAttempts int
		expectedLogs  []struct {
			level   zapcore.Level
			message string
		}
	}{
		{
			name:          "successful operation - no logs",
			operation:     func() error { return nil },
			retryAttempts: 3,
		},
		{
			name: "transient error then success - logs retry and recovery",
			operation: func() func() error {
				attempt := 0
				return func() error {
					attempt++
					if attempt == 1 {
						return status.Error(codes.Unavailable, "service unavailable")
					}
					return nil
				}
			}(),
			retryAttempts: 3,
			expectedLogs: []struct {
				level   zapcore.Level
				message string
			}{
				{level: zapcore.DebugLevel, message: "retrying operation after transient error"},
				{level: zapcore.InfoLevel, message: "operation recovered after retries"},
			},
		},
		{
			name: "all retries exhausted - logs final failure",
			operation: func() error {
				return status.Error(codes.Unavailable, "service unavailable")
			},
			retryAttempts: 1,
			expectedLogs: []struct {
				level   zapcore.Level
				message string
			}{
				{level: zapcore.DebugLevel, message: "retrying operation after transient error"},
				{level: zapcore.WarnLevel, message: "operation failed after all retries exhausted"},
			},
		},
		{
			name: "non-transient error - no retry logs",
			operation: func() error {
				return status.Error(codes.InvalidArgument, "bad request")
			},
			retryAttempts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testLogger := logging.NewTestLogger()
			client := &GRPCClient{
				config: &ClientConfig{RetryAttempts: tt.retryAttempts},
				logger: testLogger.Logger,
			}

			_ = client.retryOperation(context.Background(), tt.operation)

			for _, expectedLog := range tt.expectedLogs {
				testLogger.AssertLogged(t, expectedLog.level, expectedLog.message)
			}
		})
	}
}

func TestNewGRPCClient_RequiresLogger(t *testing.T) {
	_, err := NewGRPCClient(DefaultClientConfig(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger is required")
}

func ptrFloat64(v float64) *float64 {
	return &v
}
