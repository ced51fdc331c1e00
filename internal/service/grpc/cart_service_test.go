package grpcsvc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vladislavdragonenkov/indiakart/internal/cart"
	"github.com/vladislavdragonenkov/indiakart/internal/catalog"
	"github.com/vladislavdragonenkov/indiakart/internal/checkout"
	"github.com/vladislavdragonenkov/indiakart/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/indiakart/internal/service/grpc"
	"github.com/vladislavdragonenkov/indiakart/internal/storage/memory"
)

const bufSize = 1024 * 1024

type testEnv struct {
	client *grpcsvc.CartServiceClient
	conn   *grpc.ClientConn
	outbox *memory.OutboxRepository
}

func sessionCtx(sessionID string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), grpcsvc.SessionMetadataKey, sessionID)
}

func newTestServer(t *testing.T) testEnv {
	t.Helper()

	listener := bufconn.Listen(bufSize)
	logger := loggerForTests()
	outbox := memory.NewOutboxRepository()

	carts := cart.NewManager(memory.NewSnapshotStorage(time.Hour), cart.WithLogger(logger.WithField("layer", "cart")))
	checkoutSvc := checkout.NewService(domain.DefaultPricingPolicy(), checkout.WithOutbox(outbox), checkout.WithLogger(logger))
	service := grpcsvc.NewCartService(carts, checkoutSvc, catalog.NewDefault(), logger)

	server := grpc.NewServer()
	grpcsvc.RegisterCartServiceServer(server, service)
	healthpb.RegisterHealthServer(server, health.NewServer())

	go func() {
		if err := server.Serve(listener); err != nil {
			logger.WithError(err).Error("grpc serve failed")
		}
	}()

	dialer := func(context.Context, string) (net.Conn, error) {
		return listener.Dial()
	}

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})

	return testEnv{client: grpcsvc.NewCartServiceClient(conn), conn: conn, outbox: outbox}
}

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: false, DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

func TestCartService_AddAndGetCart(t *testing.T) {
	env := newTestServer(t)
	ctx := sessionCtx("session-a")

	added, err := env.client.AddItem(ctx, &grpcsvc.AddItemRequest{ProductID: 8})
	require.NoError(t, err)
	require.Equal(t, "Levi's 501 Original Jeans", added.Line.ProductName)
	require.True(t, decimal.NewFromInt(3999).Equal(added.Line.UnitPrice))
	require.Len(t, added.Cart.Lines, 1)

	_, err = env.client.AddItem(ctx, &grpcsvc.AddItemRequest{ProductID: 8})
	require.NoError(t, err)

	got, err := env.client.GetCart(ctx, &grpcsvc.GetCartRequest{})
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	require.Equal(t, 2, got.Lines[0].Quantity)
	require.True(t, decimal.NewFromInt(7998).Equal(got.Summary.Subtotal))
	require.True(t, got.Summary.FreeShipping)

	other, err := env.client.GetCart(sessionCtx("session-b"), &grpcsvc.GetCartRequest{})
	require.NoError(t, err)
	require.Empty(t, other.Lines)
}

func TestCartService_AddCustomItemAndMutate(t *testing.T) {
	env := newTestServer(t)
	ctx := sessionCtx("session-c")

	added, err := env.client.AddItem(ctx, &grpcsvc.AddItemRequest{Name: "Masala Chai", Price: "250", Image: "chai.jpg"})
	require.NoError(t, err)

	changed, err := env.client.ChangeQuantity(ctx, &grpcsvc.ChangeQuantityRequest{LineID: added.Line.ID, Delta: 1})
	require.NoError(t, err)
	require.Equal(t, 2, changed.Lines[0].Quantity)
	require.True(t, decimal.NewFromInt(500).Equal(changed.Summary.Subtotal))
	require.True(t, decimal.NewFromInt(90).Equal(changed.Summary.Tax))
	require.True(t, decimal.NewFromInt(590).Equal(changed.Summary.Total))

	removed, err := env.client.ChangeQuantity(ctx, &grpcsvc.ChangeQuantityRequest{LineID: added.Line.ID, Delta: -5})
	require.NoError(t, err)
	require.Empty(t, removed.Lines)

	_, err = env.client.AddItem(ctx, &grpcsvc.AddItemRequest{Name: "Masala Chai", Price: "250"})
	require.NoError(t, err)
	cleared, err := env.client.ClearCart(ctx, &grpcsvc.ClearCartRequest{})
	require.NoError(t, err)
	require.Empty(t, cleared.Lines)
	require.True(t, decimal.NewFromInt(49).Equal(cleared.Summary.Shipping))
}

func TestCartService_Checkout(t *testing.T) {
	env := newTestServer(t)
	ctx := sessionCtx("session-d")

	empty, err := env.client.Checkout(ctx, &grpcsvc.CheckoutRequest{})
	require.NoError(t, err)
	require.False(t, empty.Accepted)
	require.Equal(t, checkout.NoticeEmptyCart, empty.Notice)

	_, err = env.client.AddItem(ctx, &grpcsvc.AddItemRequest{ProductID: 5})
	require.NoError(t, err)

	placed, err := env.client.Checkout(ctx, &grpcsvc.CheckoutRequest{})
	require.NoError(t, err)
	require.True(t, placed.Accepted)
	require.Len(t, placed.OrderReference, 8)
	require.Equal(t, checkout.NoticePlaced, placed.Notice)
	require.True(t, decimal.NewFromInt(29990).Equal(placed.Summary.Subtotal))

	after, err := env.client.GetCart(ctx, &grpcsvc.GetCartRequest{})
	require.NoError(t, err)
	require.Empty(t, after.Lines)

	pending := env.outbox.AllPending()
	require.Len(t, pending, 1)
	require.Equal(t, domain.EventCheckoutCompleted, pending[0].EventType)
	require.Equal(t, placed.OrderReference, pending[0].AggregateID)
}

func TestCartService_ListProducts(t *testing.T) {
	env := newTestServer(t)

	resp, err := env.client.ListProducts(context.Background(), &grpcsvc.ListProductsRequest{Category: "fashion", Sort: catalog.SortPriceLow})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Products)
	for i, p := range resp.Products {
		require.Equal(t, "fashion", p.Category)
		if i > 0 {
			require.False(t, p.Price.LessThan(resp.Products[i-1].Price))
		}
	}

	_, err = env.client.ListProducts(context.Background(), &grpcsvc.ListProductsRequest{Category: "spaceships"})
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCartService_Errors(t *testing.T) {
	env := newTestServer(t)

	tests := []struct {
		name string
		ctx  context.Context
		call func(ctx context.Context) error
		code codes.Code
	}{
		{
			name: "missing session",
			ctx:  context.Background(),
			call: func(ctx context.Context) error {
				_, err := env.client.GetCart(ctx, &grpcsvc.GetCartRequest{})
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "unknown product",
			ctx:  sessionCtx("session-e"),
			call: func(ctx context.Context) error {
				_, err := env.client.AddItem(ctx, &grpcsvc.AddItemRequest{ProductID: 999})
				return err
			},
			code: codes.NotFound,
		},
		{
			name: "non-numeric price",
			ctx:  sessionCtx("session-e"),
			call: func(ctx context.Context) error {
				_, err := env.client.AddItem(ctx, &grpcsvc.AddItemRequest{Name: "Chai", Price: "abc"})
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "empty add request",
			ctx:  sessionCtx("session-e"),
			call: func(ctx context.Context) error {
				_, err := env.client.AddItem(ctx, &grpcsvc.AddItemRequest{})
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "missing line id",
			ctx:  sessionCtx("session-e"),
			call: func(ctx context.Context) error {
				_, err := env.client.RemoveItem(ctx, &grpcsvc.RemoveItemRequest{})
				return err
			},
			code: codes.InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(tt.ctx)
			require.Error(t, err)
			require.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestCartService_HealthOverJSONCodec(t *testing.T) {
	env := newTestServer(t)

	resp, err := healthpb.NewHealthClient(env.conn).Check(
		context.Background(),
		&healthpb.HealthCheckRequest{},
		grpc.CallContentSubtype(grpcsvc.CodecName),
	)
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
