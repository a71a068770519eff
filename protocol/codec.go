package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// BufferSize 单帧的默认最大字节数，客户端与服务端共用。
// JSON 编码的完整比赛快照约 1KB，所以取 4096。
const BufferSize = 4096

var (
	ErrEmptyPayload    = errors.New("empty payload")
	ErrPayloadTooLarge = errors.New("payload exceeds buffer size")
	ErrBadSlot         = errors.New("bad slot id")
	ErrUnknownCodec    = errors.New("unknown codec")
)

// Codec 线上编码。一个进程只用一种，客户端必须与之一致。
type Codec interface {
	Name() string
	// Padded 为 true 时帧末尾的 0 填充可以安全去掉（文本格式）
	Padded() bool
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Name() string                    { return "json" }
func (jsonCodec) Padded() bool                    { return true }
func (jsonCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (jsonCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                    { return "msgpack" }
func (msgpackCodec) Padded() bool                    { return false }
func (msgpackCodec) Marshal(v any) ([]byte, error)   { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(b []byte, v any) error { return msgpack.Unmarshal(b, v) }

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecByName 按名称取编码器："json" | "msgpack"
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// TrimFrame 去掉固定缓冲区末尾的 0 填充
func TrimFrame(b []byte) []byte {
	return bytes.TrimRight(b, "\x00")
}

// DecodeFrame 解码一帧（一次读取的内容）。
// 二进制格式的最后一个字节可能就是 0，只有文本格式才去填充。
func DecodeFrame(c Codec, frame []byte, v any) error {
	if c.Padded() {
		frame = TrimFrame(frame)
	}
	if len(frame) == 0 {
		return ErrEmptyPayload
	}
	if err := c.Unmarshal(frame, v); err != nil {
		return fmt.Errorf("decode %s frame: %w", c.Name(), err)
	}
	return nil
}

// EncodeFrame 编码一帧，超过 limit（<=0 时取 BufferSize）直接报错而不是截断
func EncodeFrame(c Codec, v any, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = BufferSize
	}
	b, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", c.Name(), err)
	}
	if len(b) > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(b), limit)
	}
	return b, nil
}

// EncodeSlot 握手消息：槽位的十进制 ASCII，无分隔符
func EncodeSlot(slot int) []byte {
	return []byte(strconv.Itoa(slot))
}

// DecodeSlot 解析握手消息（容忍末尾 0 填充）
func DecodeSlot(b []byte) (int, error) {
	s := string(bytes.TrimSpace(TrimFrame(b)))
	slot, err := strconv.Atoi(s)
	if err != nil || slot < 0 || slot > 1 {
		return 0, fmt.Errorf("%w: %q", ErrBadSlot, s)
	}
	return slot, nil
}
