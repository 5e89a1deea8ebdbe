package grpc_control

import (
	"context"
	"time"

	"quote-streamer/src/interfaces"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlService implements QuoteControlServer
type ControlService struct {
	Config   *models.MConfig
	Registry interfaces.ISubscriberRegistry
	Liveness interfaces.ILivenessMonitor
	Feed     interfaces.IQuoteFeed
	Logger   *logger.Logger

	started time.Time
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	cfg *models.MConfig,
	registry interfaces.ISubscriberRegistry,
	liveness interfaces.ILivenessMonitor,
	feed interfaces.IQuoteFeed,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:   cfg,
		Registry: registry,
		Liveness: liveness,
		Feed:     feed,
		Logger:   log,
		started:  time.Now(),
	}
}

// NewServer builds a gRPC server carrying the control service, the standard
// health service and reflection.
func NewServer(svc *ControlService, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(opts...)
	RegisterQuoteControlServer(s, svc)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	reflection.Register(s)
	return s, hs
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSubscribers(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	subs := s.Registry.List()
	list := make([]interface{}, 0, len(subs))
	for _, sub := range subs {
		symbols := make([]interface{}, len(sub.Symbols))
		for i, sym := range sub.Symbols {
			symbols[i] = string(sym)
		}
		list = append(list, map[string]interface{}{
			"subscription_id": sub.SubscriptionID,
			"key":             sub.Key,
			"transport":       sub.Transport,
			"symbols":         symbols,
			"sent":            float64(sub.Sent),
			"filtered":        float64(sub.Filtered),
			"created_at":      sub.CreatedAt.Format(time.RFC3339),
		})
	}

	out, err := structpb.NewStruct(map[string]interface{}{"subscribers": list})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode subscribers: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) EvictSubscriber(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	key, err := models.ParseSubscriberKey(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.Liveness.Forget(key)
	if !s.Registry.Evict(key) {
		return nil, status.Errorf(codes.NotFound, "no subscription for %s", key)
	}
	s.Logger.Info("Subscription %s evicted via control API", key)
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"name":             s.Config.Name,
		"codec":            s.Config.Transport.Codec,
		"subscribers":      float64(s.Registry.Len()),
		"live_keys":        float64(s.Liveness.Len()),
		"uptime_seconds":   time.Since(s.started).Seconds(),
		"interval_ms":      float64(s.Config.Generator.IntervalMs),
		"liveness_timeout": float64(s.Config.Liveness.TimeoutSeconds),
	}
	if s.Feed != nil {
		symbols := s.Feed.Symbols()
		list := make([]interface{}, len(symbols))
		for i, sym := range symbols {
			list[i] = string(sym)
		}
		fields["symbols"] = list
		fields["ticks"] = float64(s.Feed.Ticks())
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}
	return out, nil
}
