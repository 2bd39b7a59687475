package brick

import (
	"encoding/binary"
	"fmt"
)

// TypeC2SBrick and TypeS2CBrick are the game packet type bytes.
const (
	TypeC2SBrick byte = 0x1C
	TypeS2CBrick byte = 0x21
)

// c2sBrickLen is the fixed wire length of the C2S Brick packet:
// {u8 type, i16 x, i16 y}.
const c2sBrickLen = 5

// brickDataWireLen is the encoded length of one BrickData entry.
const brickDataWireLen = 16

// DecodeC2SBrick parses a client Brick request. A wrong-length packet
// is a protocol-malformed condition: the caller should
// log it as malicious and drop it rather than treat this as fatal.
func DecodeC2SBrick(data []byte) (x, y int16, err error) {
	if len(data) != c2sBrickLen {
		return 0, 0, fmt.Errorf("brick: malformed C2S Brick length %d (want %d)", len(data), c2sBrickLen)
	}
	if data[0] != TypeC2SBrick {
		return 0, 0, fmt.Errorf("brick: unexpected packet type 0x%02x", data[0])
	}
	x = int16(binary.LittleEndian.Uint16(data[1:3]))
	y = int16(binary.LittleEndian.Uint16(data[3:5]))
	return x, y, nil
}

// MaxBricksPerPacket returns how many BrickData entries fit in one
// S2C Brick packet given the transport's maxPacket size and the
// reliable-transport header it reserves.
func MaxBricksPerPacket(maxPacket, reliableHeader int) int {
	n := (maxPacket - reliableHeader - 1) / brickDataWireLen
	if n < 0 {
		return 0
	}
	return n
}

// EncodeS2CBrick encodes one S2C Brick packet's worth of bricks: {u8
// type=0x21, repeated BrickData}. Callers must pre-split batches using
// MaxBricksPerPacket.
func EncodeS2CBrick(bricks []BrickData) []byte {
	buf := make([]byte, 1+len(bricks)*brickDataWireLen)
	buf[0] = TypeS2CBrick
	for i, b := range bricks {
		off := 1 + i*brickDataWireLen
		binary.LittleEndian.PutUint16(buf[off:], uint16(b.X1))
		binary.LittleEndian.PutUint16(buf[off+2:], uint16(b.Y1))
		binary.LittleEndian.PutUint16(buf[off+4:], uint16(b.X2))
		binary.LittleEndian.PutUint16(buf[off+6:], uint16(b.Y2))
		binary.LittleEndian.PutUint16(buf[off+8:], b.Freq)
		binary.LittleEndian.PutUint16(buf[off+10:], b.BrickID)
		binary.LittleEndian.PutUint32(buf[off+12:], b.StartTick)
	}
	return buf
}
