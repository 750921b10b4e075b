package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteFrame 写出一条消息：4 字节大端长度前缀 + 消息体
func WriteFrame(w io.Writer, msg Message) error {
	data, err := Marshal(msg)
	if err != nil {
		return err
	}
	return WriteRaw(w, data)
}

// WriteRaw 写出已序列化的消息体
func WriteRaw(w io.Writer, data []byte) error {
	if len(data) > MaxPacketSize {
		return fmt.Errorf("%w (%d bytes)", ErrPacketTooLarge, len(data))
	}

	// 长度前缀与消息体合并为一次写入，避免 KCP/WebSocket 上被拆成两个包
	buf := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)

	_, err := w.Write(buf)
	return err
}

// ReadFrame 读取一条消息；空帧返回 (nil, nil)
func ReadFrame(r io.Reader) (Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxPacketSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrPacketTooLarge, length)
	}
	if length == 0 {
		return nil, nil
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("读取数据失败: %w", err)
	}
	return Unmarshal(data)
}
