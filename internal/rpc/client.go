package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/veto/internal/apperr"
)

// ToolInfo describes one remote tool.
type ToolInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamInfo `json:"params"`
}

// ParamInfo describes one remote tool parameter.
type ParamInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Required bool   `json:"required"`
}

// #region client
// Client calls a remote veto.v1.ToolService.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// Dial connects to a veto gRPC server.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Invoke runs a remote tool and returns its decoded result. Status errors
// come back as classified apperr errors.
func (c *Client) Invoke(ctx context.Context, tool string, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	req, err := structpb.NewStruct(map[string]any{"tool": tool, "arguments": args})
	if err != nil {
		return nil, apperr.Validation("encode arguments: %v", err)
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, invokeMethodName, req, resp); err != nil {
		return nil, fromStatus(err)
	}
	return resp.GetFields()["result"].AsInterface(), nil
}

// List returns the remote tool catalog.
func (c *Client) List(ctx context.Context) ([]ToolInfo, error) {
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listMethodName, &emptypb.Empty{}, resp); err != nil {
		return nil, fromStatus(err)
	}
	var out []ToolInfo
	for _, v := range resp.GetFields()["tools"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		info := ToolInfo{
			Name:        f["name"].GetStringValue(),
			Description: f["description"].GetStringValue(),
		}
		for _, pv := range f["params"].GetListValue().GetValues() {
			pf := pv.GetStructValue().GetFields()
			info.Params = append(info.Params, ParamInfo{
				Name:     pf["name"].GetStringValue(),
				Kind:     pf["kind"].GetStringValue(),
				Required: pf["required"].GetBoolValue(),
			})
		}
		out = append(out, info)
	}
	return out, nil
}

// #endregion client

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return apperr.Dependency(err, "grpc call failed")
	}
	msg := st.Message()
	switch st.Code() {
	case codes.InvalidArgument:
		return apperr.Validation("%s", msg)
	case codes.NotFound:
		return apperr.NotFound("%s", msg)
	case codes.AlreadyExists:
		return apperr.Conflict("%s", msg)
	case codes.FailedPrecondition:
		return apperr.Policy("%s", msg)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return apperr.Dependency(err, "remote call failed")
	default:
		return fmt.Errorf("grpc %s: %s", st.Code(), msg)
	}
}
