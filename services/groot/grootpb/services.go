// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package grootpb

import (
	"context"

	"google.golang.org/grpc"
)

// Service names as registered by the Groot frontend.
const (
	DdlServiceName    = "gs.rpc.groot.GrootDdlService"
	WriteServiceName  = "gs.rpc.groot.ClientWrite"
	ClientServiceName = "gs.rpc.groot.sdk.Client"
)

// Full method names.
const (
	DdlBatchSubmitMethod    = "/" + DdlServiceName + "/batchSubmit"
	DdlGetGraphDefMethod    = "/" + DdlServiceName + "/getGraphDef"
	WriteGetClientIDMethod  = "/" + WriteServiceName + "/getClientId"
	WriteBatchWriteMethod   = "/" + WriteServiceName + "/batchWrite"
	WriteRemoteFlushMethod  = "/" + WriteServiceName + "/remoteFlush"
	WriteReplayMethod       = "/" + WriteServiceName + "/replayRecords"
	ClientStoreStateMethod  = "/" + ClientServiceName + "/getStoreState"
	ClientCompactDBMethod   = "/" + ClientServiceName + "/compactDB"
	ClientReopenMethod      = "/" + ClientServiceName + "/reopenSecondary"
	ClientReplayV2Method    = "/" + ClientServiceName + "/replayRecordsV2"
)

// =============================================================================
// GrootDdlService
// =============================================================================

// DdlServiceClient is the client API for GrootDdlService.
type DdlServiceClient interface {
	BatchSubmit(ctx context.Context, in *BatchSubmitRequest, opts ...grpc.CallOption) (*BatchSubmitResponse, error)
	GetGraphDef(ctx context.Context, in *GetGraphDefRequest, opts ...grpc.CallOption) (*GetGraphDefResponse, error)
}

type ddlServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDdlServiceClient returns a GrootDdlService stub bound to cc.
func NewDdlServiceClient(cc grpc.ClientConnInterface) DdlServiceClient {
	return &ddlServiceClient{cc: cc}
}

func (c *ddlServiceClient) BatchSubmit(ctx context.Context, in *BatchSubmitRequest, opts ...grpc.CallOption) (*BatchSubmitResponse, error) {
	out := new(BatchSubmitResponse)
	if err := c.cc.Invoke(ctx, DdlBatchSubmitMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ddlServiceClient) GetGraphDef(ctx context.Context, in *GetGraphDefRequest, opts ...grpc.CallOption) (*GetGraphDefResponse, error) {
	out := new(GetGraphDefResponse)
	if err := c.cc.Invoke(ctx, DdlGetGraphDefMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// DdlServiceServer is the server API for GrootDdlService.
type DdlServiceServer interface {
	BatchSubmit(context.Context, *BatchSubmitRequest) (*BatchSubmitResponse, error)
	GetGraphDef(context.Context, *GetGraphDefRequest) (*GetGraphDefResponse, error)
}

// RegisterDdlServiceServer registers srv on s.
func RegisterDdlServiceServer(s grpc.ServiceRegistrar, srv DdlServiceServer) {
	s.RegisterService(&DdlServiceDesc, srv)
}

// DdlServiceDesc describes GrootDdlService for grpc.Server.
var DdlServiceDesc = grpc.ServiceDesc{
	ServiceName: DdlServiceName,
	HandlerType: (*DdlServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "batchSubmit",
			Handler: unaryHandler(DdlBatchSubmitMethod, func(srv any, ctx context.Context, in *BatchSubmitRequest) (any, error) {
				return srv.(DdlServiceServer).BatchSubmit(ctx, in)
			}),
		},
		{
			MethodName: "getGraphDef",
			Handler: unaryHandler(DdlGetGraphDefMethod, func(srv any, ctx context.Context, in *GetGraphDefRequest) (any, error) {
				return srv.(DdlServiceServer).GetGraphDef(ctx, in)
			}),
		},
	},
	Metadata: "groot/ddl_service.proto",
}

// =============================================================================
// ClientWrite
// =============================================================================

// WriteServiceClient is the client API for ClientWrite.
type WriteServiceClient interface {
	GetClientID(ctx context.Context, in *GetClientIDRequest, opts ...grpc.CallOption) (*GetClientIDResponse, error)
	BatchWrite(ctx context.Context, in *BatchWriteRequest, opts ...grpc.CallOption) (*BatchWriteResponse, error)
	RemoteFlush(ctx context.Context, in *RemoteFlushRequest, opts ...grpc.CallOption) (*RemoteFlushResponse, error)
	ReplayRecords(ctx context.Context, in *ReplayRecordsRequest, opts ...grpc.CallOption) (*ReplayRecordsResponse, error)
}

type writeServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewWriteServiceClient returns a ClientWrite stub bound to cc.
func NewWriteServiceClient(cc grpc.ClientConnInterface) WriteServiceClient {
	return &writeServiceClient{cc: cc}
}

func (c *writeServiceClient) GetClientID(ctx context.Context, in *GetClientIDRequest, opts ...grpc.CallOption) (*GetClientIDResponse, error) {
	out := new(GetClientIDResponse)
	if err := c.cc.Invoke(ctx, WriteGetClientIDMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *writeServiceClient) BatchWrite(ctx context.Context, in *BatchWriteRequest, opts ...grpc.CallOption) (*BatchWriteResponse, error) {
	out := new(BatchWriteResponse)
	if err := c.cc.Invoke(ctx, WriteBatchWriteMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *writeServiceClient) RemoteFlush(ctx context.Context, in *RemoteFlushRequest, opts ...grpc.CallOption) (*RemoteFlushResponse, error) {
	out := new(RemoteFlushResponse)
	if err := c.cc.Invoke(ctx, WriteRemoteFlushMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *writeServiceClient) ReplayRecords(ctx context.Context, in *ReplayRecordsRequest, opts ...grpc.CallOption) (*ReplayRecordsResponse, error) {
	out := new(ReplayRecordsResponse)
	if err := c.cc.Invoke(ctx, WriteReplayMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteServiceServer is the server API for ClientWrite.
type WriteServiceServer interface {
	GetClientID(context.Context, *GetClientIDRequest) (*GetClientIDResponse, error)
	BatchWrite(context.Context, *BatchWriteRequest) (*BatchWriteResponse, error)
	RemoteFlush(context.Context, *RemoteFlushRequest) (*RemoteFlushResponse, error)
	ReplayRecords(context.Context, *ReplayRecordsRequest) (*ReplayRecordsResponse, error)
}

// RegisterWriteServiceServer registers srv on s.
func RegisterWriteServiceServer(s grpc.ServiceRegistrar, srv WriteServiceServer) {
	s.RegisterService(&WriteServiceDesc, srv)
}

// WriteServiceDesc describes ClientWrite for grpc.Server.
var WriteServiceDesc = grpc.ServiceDesc{
	ServiceName: WriteServiceName,
	HandlerType: (*WriteServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "getClientId",
			Handler: unaryHandler(WriteGetClientIDMethod, func(srv any, ctx context.Context, in *GetClientIDRequest) (any, error) {
				return srv.(WriteServiceServer).GetClientID(ctx, in)
			}),
		},
		{
			MethodName: "batchWrite",
			Handler: unaryHandler(WriteBatchWriteMethod, func(srv any, ctx context.Context, in *BatchWriteRequest) (any, error) {
				return srv.(WriteServiceServer).BatchWrite(ctx, in)
			}),
		},
		{
			MethodName: "remoteFlush",
			Handler: unaryHandler(WriteRemoteFlushMethod, func(srv any, ctx context.Context, in *RemoteFlushRequest) (any, error) {
				return srv.(WriteServiceServer).RemoteFlush(ctx, in)
			}),
		},
		{
			MethodName: "replayRecords",
			Handler: unaryHandler(WriteReplayMethod, func(srv any, ctx context.Context, in *ReplayRecordsRequest) (any, error) {
				return srv.(WriteServiceServer).ReplayRecords(ctx, in)
			}),
		},
	},
	Metadata: "groot/write_service.proto",
}

// =============================================================================
// Client (administrative)
// =============================================================================

// ClientServiceClient is the client API for the administrative Client service.
type ClientServiceClient interface {
	GetStoreState(ctx context.Context, in *GetStoreStateRequest, opts ...grpc.CallOption) (*GetStoreStateResponse, error)
	CompactDB(ctx context.Context, in *CompactDBRequest, opts ...grpc.CallOption) (*CompactDBResponse, error)
	ReopenSecondary(ctx context.Context, in *ReopenSecondaryRequest, opts ...grpc.CallOption) (*ReopenSecondaryResponse, error)
	ReplayRecordsV2(ctx context.Context, in *ReplayRecordsRequestV2, opts ...grpc.CallOption) (*ReplayRecordsResponseV2, error)
}

type clientServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewClientServiceClient returns a Client service stub bound to cc.
func NewClientServiceClient(cc grpc.ClientConnInterface) ClientServiceClient {
	return &clientServiceClient{cc: cc}
}

func (c *clientServiceClient) GetStoreState(ctx context.Context, in *GetStoreStateRequest, opts ...grpc.CallOption) (*GetStoreStateResponse, error) {
	out := new(GetStoreStateResponse)
	if err := c.cc.Invoke(ctx, ClientStoreStateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) CompactDB(ctx context.Context, in *CompactDBRequest, opts ...grpc.CallOption) (*CompactDBResponse, error) {
	out := new(CompactDBResponse)
	if err := c.cc.Invoke(ctx, ClientCompactDBMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) ReopenSecondary(ctx context.Context, in *ReopenSecondaryRequest, opts ...grpc.CallOption) (*ReopenSecondaryResponse, error) {
	out := new(ReopenSecondaryResponse)
	if err := c.cc.Invoke(ctx, ClientReopenMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientServiceClient) ReplayRecordsV2(ctx context.Context, in *ReplayRecordsRequestV2, opts ...grpc.CallOption) (*ReplayRecordsResponseV2, error) {
	out := new(ReplayRecordsResponseV2)
	if err := c.cc.Invoke(ctx, ClientReplayV2Method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ClientServiceServer is the server API for the administrative Client service.
type ClientServiceServer interface {
	GetStoreState(context.Context, *GetStoreStateRequest) (*GetStoreStateResponse, error)
	CompactDB(context.Context, *CompactDBRequest) (*CompactDBResponse, error)
	ReopenSecondary(context.Context, *ReopenSecondaryRequest) (*ReopenSecondaryResponse, error)
	ReplayRecordsV2(context.Context, *ReplayRecordsRequestV2) (*ReplayRecordsResponseV2, error)
}

// RegisterClientServiceServer registers srv on s.
func RegisterClientServiceServer(s grpc.ServiceRegistrar, srv ClientServiceServer) {
	s.RegisterService(&ClientServiceDesc, srv)
}

// ClientServiceDesc describes the administrative Client service for grpc.Server.
var ClientServiceDesc = grpc.ServiceDesc{
	ServiceName: ClientServiceName,
	HandlerType: (*ClientServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "getStoreState",
			Handler: unaryHandler(ClientStoreStateMethod, func(srv any, ctx context.Context, in *GetStoreStateRequest) (any, error) {
				return srv.(ClientServiceServer).GetStoreState(ctx, in)
			}),
		},
		{
			MethodName: "compactDB",
			Handler: unaryHandler(ClientCompactDBMethod, func(srv any, ctx context.Context, in *CompactDBRequest) (any, error) {
				return srv.(ClientServiceServer).CompactDB(ctx, in)
			}),
		},
		{
			MethodName: "reopenSecondary",
			Handler: unaryHandler(ClientReopenMethod, func(srv any, ctx context.Context, in *ReopenSecondaryRequest) (any, error) {
				return srv.(ClientServiceServer).ReopenSecondary(ctx, in)
			}),
		},
		{
			MethodName: "replayRecordsV2",
			Handler: unaryHandler(ClientReplayV2Method, func(srv any, ctx context.Context, in *ReplayRecordsRequestV2) (any, error) {
				return srv.(ClientServiceServer).ReplayRecordsV2(ctx, in)
			}),
		},
	},
	Metadata: "groot/sdk/client_service.proto",
}

// unaryHandler adapts a typed call into a grpc.MethodHandler.
func unaryHandler[Req any, PReq interface {
	*Req
	Message
}](fullMethod string, call func(srv any, ctx context.Context, in PReq) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}
