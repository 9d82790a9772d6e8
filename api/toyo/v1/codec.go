package toyov1

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Codec serializes envelopes. Every Codec doubles as a gRPC codec and is
// selected by its Name as the call's content-subtype.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Codec names accepted by GetCodec and the --codec flags.
const (
	CodecNameJSON     = "json"
	CodecNameMsgpack  = "msgpack"
	CodecNamePBStruct = "pbstruct"
)

func init() {
	encoding.RegisterCodec(JSONCodec{})
	encoding.RegisterCodec(MsgpackCodec{})
	encoding.RegisterCodec(PBStructCodec{})
}

// GetCodec returns the codec registered under name. An empty name selects JSON.
func GetCodec(name string) (Codec, error) {
	switch name {
	case CodecNameJSON, "":
		return JSONCodec{}, nil
	case CodecNameMsgpack:
		return MsgpackCodec{}, nil
	case CodecNamePBStruct:
		return PBStructCodec{}, nil
	default:
		return nil, fmt.Errorf("toyov1: unknown codec %q", name)
	}
}

// CodecNames lists the supported codecs.
func CodecNames() []string {
	return []string{CodecNameJSON, CodecNameMsgpack, CodecNamePBStruct}
}

// JSONCodec encodes envelopes as JSON objects.
type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecNameJSON }

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// MsgpackCodec encodes envelopes as MessagePack maps.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return CodecNameMsgpack }

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	v, err := nativeEnvelope(v)
	if err != nil {
		return nil, fmt.Errorf("msgpack: %w", err)
	}
	return msgpack.Marshal(v)
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(v); err != nil {
		return err
	}
	normalizeEnvelope(v)
	return nil
}

// PBStructCodec carries the JSON form of an envelope inside a
// google.protobuf.Struct. Numbers travel as doubles, so integers beyond 2^53
// lose precision.
type PBStructCodec struct{}

func (PBStructCodec) Name() string { return CodecNamePBStruct }

func (PBStructCodec) Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("pbstruct: %w", err)
	}
	return proto.Marshal(st)
}

func (PBStructCodec) Unmarshal(data []byte, v any) error {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return err
	}
	raw, err := protojson.Marshal(st)
	if err != nil {
		return err
	}
	return JSONCodec{}.Unmarshal(raw, v)
}

// nativeEnvelope swaps json.Number literals for machine numbers; msgpack
// would otherwise write them as strings.
func nativeEnvelope(v any) (any, error) {
	var err error
	switch m := v.(type) {
	case *Request:
		if m == nil {
			return v, nil
		}
		cp := *m
		cp.Data, err = m.Data.Native()
		return &cp, err
	case *Reply:
		if m == nil {
			return v, nil
		}
		cp := *m
		cp.Data, err = m.Data.Native()
		return &cp, err
	case Job:
		return m.Native()
	case *Job:
		if m == nil {
			return v, nil
		}
		return m.Native()
	}
	return v, nil
}

func normalizeEnvelope(v any) {
	switch m := v.(type) {
	case *Request:
		m.Data = NormalizeJob(m.Data)
	case *Reply:
		m.Data = NormalizeJob(m.Data)
	case *Job:
		*m = NormalizeJob(*m)
	}
}
