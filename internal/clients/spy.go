package clients

import (
	"context"
	"fmt"
	"time"

	publicrpcv1 "github.com/certusone/wormhole/node/pkg/proto/publicrpc/v1"
	spyv1 "github.com/certusone/wormhole/node/pkg/proto/spy/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// SignedVAAStream yields signed VAAs from a subscription.
type SignedVAAStream interface {
	Recv() (*spyv1.SubscribeSignedVAAResponse, error)
}

// EmitterFilter narrows a spy subscription to one emitter.
type EmitterFilter struct {
	ChainID uint16
	// Address is the 64-char hex emitter address, no 0x.
	Address string
}

// SpyClient handles connections to the Wormhole spy service
type SpyClient struct {
	endpoint   string
	conn       *grpc.ClientConn
	client     spyv1.SpyRPCServiceClient
	filters    []*spyv1.FilterEntry
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewSpyClient creates a client for the spy at endpoint. The connection is
// established lazily by the first subscription.
func NewSpyClient(logger *zap.Logger, endpoint string, filters ...EmitterFilter) (*SpyClient, error) {
	client := &SpyClient{
		endpoint:   endpoint,
		logger:     logger.With(zap.String("component", "SpyClient")),
		maxRetries: 5,
		retryDelay: 2 * time.Second,
	}
	for _, f := range filters {
		client.filters = append(client.filters, &spyv1.FilterEntry{
			Filter: &spyv1.FilterEntry_EmitterFilter{
				EmitterFilter: &spyv1.EmitterFilter{
					ChainId:        publicrpcv1.ChainID(f.ChainID),
					EmitterAddress: f.Address,
				},
			},
		})
	}

	client.logger.Info("Connecting to spy service",
		zap.String("endpoint", endpoint),
		zap.Int("filters", len(client.filters)))
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to spy: %w", err)
	}
	client.conn = conn
	client.client = spyv1.NewSpyRPCServiceClient(conn)
	return client, nil
}

// Close closes the connection to the spy service
func (c *SpyClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// SubscribeSignedVAA subscribes to signed VAAs with retry logic
func (c *SpyClient) SubscribeSignedVAA(ctx context.Context) (SignedVAAStream, error) {
	c.logger.Debug("Subscribing to signed VAAs")

	var err error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		var stream spyv1.SpyRPCService_SubscribeSignedVAAClient
		stream, err = c.client.SubscribeSignedVAA(ctx, &spyv1.SubscribeSignedVAARequest{Filters: c.filters})
		if err == nil {
			return stream, nil
		}
		if attempt == c.maxRetries {
			break
		}

		c.logger.Warn("Subscribe attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
			zap.Duration("retryIn", c.retryDelay))

		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("failed to subscribe after %d attempts: %w", c.maxRetries, err)
}
