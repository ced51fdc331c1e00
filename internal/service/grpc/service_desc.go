package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName — полное имя gRPC-сервиса корзины.
const ServiceName = "indiakart.v1.CartService"

const (
	methodGetCart        = "/" + ServiceName + "/GetCart"
	methodAddItem        = "/" + ServiceName + "/AddItem"
	methodChangeQuantity = "/" + ServiceName + "/ChangeQuantity"
	methodRemoveItem     = "/" + ServiceName + "/RemoveItem"
	methodClearCart      = "/" + ServiceName + "/ClearCart"
	methodCheckout       = "/" + ServiceName + "/Checkout"
	methodListProducts   = "/" + ServiceName + "/ListProducts"
)

// CartServiceServer — серверная сторона CartService.
type CartServiceServer interface {
	GetCart(context.Context, *GetCartRequest) (*CartResponse, error)
	AddItem(context.Context, *AddItemRequest) (*AddItemResponse, error)
	ChangeQuantity(context.Context, *ChangeQuantityRequest) (*CartResponse, error)
	RemoveItem(context.Context, *RemoveItemRequest) (*CartResponse, error)
	ClearCart(context.Context, *ClearCartRequest) (*CartResponse, error)
	Checkout(context.Context, *CheckoutRequest) (*CheckoutResponse, error)
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
}

// RegisterCartServiceServer регистрирует реализацию на сервере.
func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&CartServiceDesc, srv)
}

// unaryHandler строит grpc.MethodHandler для метода с запросом Req.
func unaryHandler[Req any, Resp any](fullMethod string, call func(CartServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CartServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CartServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CartServiceDesc описывает сервис без protoc: сообщения передаются JSON-кодеком.
var CartServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCart", Handler: unaryHandler(methodGetCart, CartServiceServer.GetCart)},
		{MethodName: "AddItem", Handler: unaryHandler(methodAddItem, CartServiceServer.AddItem)},
		{MethodName: "ChangeQuantity", Handler: unaryHandler(methodChangeQuantity, CartServiceServer.ChangeQuantity)},
		{MethodName: "RemoveItem", Handler: unaryHandler(methodRemoveItem, CartServiceServer.RemoveItem)},
		{MethodName: "ClearCart", Handler: unaryHandler(methodClearCart, CartServiceServer.ClearCart)},
		{MethodName: "Checkout", Handler: unaryHandler(methodCheckout, CartServiceServer.Checkout)},
		{MethodName: "ListProducts", Handler: unaryHandler(methodListProducts, CartServiceServer.ListProducts)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "indiakart/v1/cart_service",
}

// CartServiceClient — клиент CartService поверх JSON-кодека.
type CartServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCartServiceClient создаёт клиента.
func NewCartServiceClient(cc grpc.ClientConnInterface) *CartServiceClient {
	return &CartServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartServiceClient) GetCart(ctx context.Context, in *GetCartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, methodGetCart, in, opts)
}

func (c *CartServiceClient) AddItem(ctx context.Context, in *AddItemRequest, opts ...grpc.CallOption) (*AddItemResponse, error) {
	return invoke[AddItemResponse](ctx, c.cc, methodAddItem, in, opts)
}

func (c *CartServiceClient) ChangeQuantity(ctx context.Context, in *ChangeQuantityRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, methodChangeQuantity, in, opts)
}

func (c *CartServiceClient) RemoveItem(ctx context.Context, in *RemoveItemRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, methodRemoveItem, in, opts)
}

func (c *CartServiceClient) ClearCart(ctx context.Context, in *ClearCartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, methodClearCart, in, opts)
}

func (c *CartServiceClient) Checkout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CheckoutResponse, error) {
	return invoke[CheckoutResponse](ctx, c.cc, methodCheckout, in, opts)
}

func (c *CartServiceClient) ListProducts(ctx context.Context, in *ListProductsRequest, opts ...grpc.CallOption) (*ListProductsResponse, error) {
	return invoke[ListProductsResponse](ctx, c.cc, methodListProducts, in, opts)
}
