package gamesession

import (
	"context"

	platformgrpc "github.com/louisbranch/gamesession/internal/platform/grpc"
	"google.golang.org/grpc"
)

const (
	// ServiceName is the fully qualified coordinator service.
	ServiceName = "gamesession.v1.GameSessionService"

	StartGameFullMethodName       = "/" + ServiceName + "/StartGame"
	CheckWordFullMethodName       = "/" + ServiceName + "/CheckWord"
	GetStateFullMethodName        = "/" + ServiceName + "/GetState"
	ReadMailboxFullMethodName     = "/" + ServiceName + "/ReadMailbox"
	ListGameResultsFullMethodName = "/" + ServiceName + "/ListGameResults"
)

// GameSessionServiceServer is the coordinator server API.
type GameSessionServiceServer interface {
	StartGame(context.Context, *StartGameRequest) (*StartGameResponse, error)
	CheckWord(context.Context, *CheckWordRequest) (*CheckWordResponse, error)
	GetState(context.Context, *GetStateRequest) (*GetStateResponse, error)
	ReadMailbox(context.Context, *ReadMailboxRequest) (*ReadMailboxResponse, error)
	ListGameResults(context.Context, *ListGameResultsRequest) (*ListGameResultsResponse, error)
}

// RegisterGameSessionServiceServer registers srv on s.
func RegisterGameSessionServiceServer(s grpc.ServiceRegistrar, srv GameSessionServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// GameSessionServiceClient is the coordinator client API.
type GameSessionServiceClient interface {
	StartGame(ctx context.Context, in *StartGameRequest, opts ...grpc.CallOption) (*StartGameResponse, error)
	CheckWord(ctx context.Context, in *CheckWordRequest, opts ...grpc.CallOption) (*CheckWordResponse, error)
	GetState(ctx context.Context, in *GetStateRequest, opts ...grpc.CallOption) (*GetStateResponse, error)
	ReadMailbox(ctx context.Context, in *ReadMailboxRequest, opts ...grpc.CallOption) (*ReadMailboxResponse, error)
	ListGameResults(ctx context.Context, in *ListGameResultsRequest, opts ...grpc.CallOption) (*ListGameResultsResponse, error)
}

type client struct {
	cc grpc.ClientConnInterface
}

// NewGameSessionServiceClient returns a JSON-coded client over cc.
func NewGameSessionServiceClient(cc grpc.ClientConnInterface) GameSessionServiceClient {
	return &client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(platformgrpc.CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) StartGame(ctx context.Context, in *StartGameRequest, opts ...grpc.CallOption) (*StartGameResponse, error) {
	return invoke[StartGameResponse](ctx, c.cc, StartGameFullMethodName, in, opts)
}

func (c *client) CheckWord(ctx context.Context, in *CheckWordRequest, opts ...grpc.CallOption) (*CheckWordResponse, error) {
	return invoke[CheckWordResponse](ctx, c.cc, CheckWordFullMethodName, in, opts)
}

func (c *client) GetState(ctx context.Context, in *GetStateRequest, opts ...grpc.CallOption) (*GetStateResponse, error) {
	return invoke[GetStateResponse](ctx, c.cc, GetStateFullMethodName, in, opts)
}

func (c *client) ReadMailbox(ctx context.Context, in *ReadMailboxRequest, opts ...grpc.CallOption) (*ReadMailboxResponse, error) {
	return invoke[ReadMailboxResponse](ctx, c.cc, ReadMailboxFullMethodName, in, opts)
}

func (c *client) ListGameResults(ctx context.Context, in *ListGameResultsRequest, opts ...grpc.CallOption) (*ListGameResultsResponse, error) {
	return invoke[ListGameResultsResponse](ctx, c.cc, ListGameResultsFullMethodName, in, opts)
}

func unaryHandler[Req any, Resp any](method string, call func(GameSessionServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GameSessionServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GameSessionServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GameSessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartGame", Handler: unaryHandler(StartGameFullMethodName, GameSessionServiceServer.StartGame)},
		{MethodName: "CheckWord", Handler: unaryHandler(CheckWordFullMethodName, GameSessionServiceServer.CheckWord)},
		{MethodName: "GetState", Handler: unaryHandler(GetStateFullMethodName, GameSessionServiceServer.GetState)},
		{MethodName: "ReadMailbox", Handler: unaryHandler(ReadMailboxFullMethodName, GameSessionServiceServer.ReadMailbox)},
		{MethodName: "ListGameResults", Handler: unaryHandler(ListGameResultsFullMethodName, GameSessionServiceServer.ListGameResults)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gamesession/v1/gamesession.proto",
}
