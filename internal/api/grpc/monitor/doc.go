// Package monitor implements the gRPC transport of the pool-guard control API.
//
// The service poolguard.v1.MonitorService is described by a hand-written
// grpc.ServiceDesc whose messages are protobuf well-known types, so no code
// generation step is needed. Snapshots travel as google.protobuf.Struct.
package monitor
