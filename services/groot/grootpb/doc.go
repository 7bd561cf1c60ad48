// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package grootpb holds the wire messages and gRPC stubs for the three
// services exposed by a Groot frontend.
//
// # Services
//
//   - gs.rpc.groot.GrootDdlService: batchSubmit, getGraphDef
//   - gs.rpc.groot.ClientWrite: getClientId, batchWrite, remoteFlush, replayRecords
//   - gs.rpc.groot.sdk.Client: getStoreState, compactDB, reopenSecondary, replayRecordsV2
//
// # Encoding
//
// Messages are encoded field-for-field with protowire, so they interoperate
// with servers built from the upstream .proto files. Only the fields the
// client reads or writes are modelled; anything else on the wire is skipped
// when decoding. Map fields are written in key order so that equal messages
// produce equal bytes.
//
// Use Codec with grpc.ForceCodec on a client connection and
// grpc.ForceServerCodec on a server.
package grootpb
