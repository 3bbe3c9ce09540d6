// Package chunkrpc 定义 chunk 服务的 gRPC 接口
// 消息是普通的 Go 结构体，通过注册的 CBOR codec 编码 (content-subtype "cbor")
package chunkrpc

import (
	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName 是 gRPC content-subtype
const CodecName = "cbor"

type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

func (codec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(codec{})
}

// CallOption 让一次调用使用 CBOR 编码
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
