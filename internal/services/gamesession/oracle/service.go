// Package oracle bridges the session coordinator to the remote word oracle
// over gRPC.
package oracle

import (
	"context"

	platformgrpc "github.com/louisbranch/gamesession/internal/platform/grpc"
	"google.golang.org/grpc"
)

const (
	// ServiceName is the fully qualified oracle service.
	ServiceName = "wordle.v1.WordleService"

	StartGameFullMethodName = "/" + ServiceName + "/StartGame"
	CheckWordFullMethodName = "/" + ServiceName + "/CheckWord"
)

// StartGameRequest asks the oracle to pick a word for a user.
type StartGameRequest struct {
	User string `json:"user"`
}

// StartGameResponse confirms a started game.
type StartGameResponse struct {
	User string `json:"user"`
}

// CheckWordRequest compares a guess against a user's word.
type CheckWordRequest struct {
	User string `json:"user"`
	Word string `json:"word"`
}

// CheckWordResponse lists matching letter positions.
type CheckWordResponse struct {
	User             string   `json:"user"`
	CorrectPositions []uint32 `json:"correct_positions"`
	ContainedInWord  []uint32 `json:"contained_in_word"`
}

// Client is the oracle client API.
type Client interface {
	StartGame(ctx context.Context, in *StartGameRequest, opts ...grpc.CallOption) (*StartGameResponse, error)
	CheckWord(ctx context.Context, in *CheckWordRequest, opts ...grpc.CallOption) (*CheckWordResponse, error)
}

type client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a JSON-coded oracle client over cc.
func NewClient(cc grpc.ClientConnInterface) Client {
	return &client{cc: cc}
}

func (c *client) StartGame(ctx context.Context, in *StartGameRequest, opts ...grpc.CallOption) (*StartGameResponse, error) {
	out := new(StartGameResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(platformgrpc.CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, StartGameFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) CheckWord(ctx context.Context, in *CheckWordRequest, opts ...grpc.CallOption) (*CheckWordResponse, error) {
	out := new(CheckWordResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(platformgrpc.CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, CheckWordFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Server is implemented by oracle backends.
type Server interface {
	StartGame(context.Context, *StartGameRequest) (*StartGameResponse, error)
	CheckWord(context.Context, *CheckWordRequest) (*CheckWordResponse, error)
}

// RegisterServer registers an oracle backend on s.
func RegisterServer(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

func startGameHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StartGameRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).StartGame(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StartGameFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).StartGame(ctx, req.(*StartGameRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func checkWordHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckWordRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).CheckWord(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CheckWordFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).CheckWord(ctx, req.(*CheckWordRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartGame", Handler: startGameHandler},
		{MethodName: "CheckWord", Handler: checkWordHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wordle/v1/wordle.proto",
}
