// Package toyov1 defines the wire contract shared by the toyo broker and its
// clients.
//
// # Envelopes
//
// Every exchange is a single Request answered by exactly one Reply:
//
//	Request: {"command": "put"|"get"|"done", "data": <job-or-null>, "wait_ms"?: int, "delivery"?: string}
//	Reply:   {"status": "success"|"failure", "data": <job-or-null>, "delivery"?: string}
//
// A Job is a schema-less JSON object. JSON numbers are kept as json.Number,
// so a job re-encodes to the literals it arrived with: 1.0 stays 1.0 and
// integers beyond 64 bits keep every digit. Msgpack values widen to int64 or
// float64; pbstruct carries doubles only.
//
// # Codecs
//
// Three codecs are registered with gRPC and selected per call through the
// content-subtype: "json" (default), "msgpack" and "pbstruct" (a
// google.protobuf.Struct in binary proto form).
//
// # Service
//
// The Broker service exposes one unary method, Exchange. Its descriptor is
// written by hand; there is no generated code.
package toyov1
