package lvz

import (
	"encoding/binary"
	"fmt"
)

// Packet type bytes.
const (
	TypeToggleLVZ byte = 0x35
	TypeChangeLVZ byte = 0x36
)

// MaxPacketBytes is the client's receive limit for one ToggleLVZ or
// ChangeLVZ packet.
const MaxPacketBytes = 2048

const (
	toggleEntryLen = 2
	changeEntryLen = 11
)

// ToggleEntry is one (id, !enabled) pair as carried by a ToggleLVZ
// packet.
type ToggleEntry struct {
	ID      uint16
	Enabled bool
}

// ChangeEntry is one object's full edited state, as broadcast by
// change().
type ChangeEntry struct {
	ID uint16
	State
}

// BatchToggle splits entries into one or more ToggleLVZ packet
// payloads, each bounded by MaxPacketBytes.
func BatchToggle(entries []ToggleEntry) [][]byte {
	perPacket := (MaxPacketBytes - 1) / toggleEntryLen
	var packets [][]byte
	for len(entries) > 0 {
		n := len(entries)
		if n > perPacket {
			n = perPacket
		}
		packets = append(packets, encodeToggle(entries[:n]))
		entries = entries[n:]
	}
	return packets
}

func encodeToggle(entries []ToggleEntry) []byte {
	buf := make([]byte, 1+len(entries)*toggleEntryLen)
	buf[0] = TypeToggleLVZ
	for i, e := range entries {
		off := 1 + i*toggleEntryLen
		id := e.ID
		// Wire convention: the toggle entry carries the *negated*
		// enabled bit in the top bit of the id field.
		if !e.Enabled {
			id |= 0x8000
		}
		binary.LittleEndian.PutUint16(buf[off:], id)
	}
	return buf
}

// BatchChange splits entries into one or more ChangeLVZ packet
// payloads, each bounded by MaxPacketBytes.
func BatchChange(entries []ChangeEntry) [][]byte {
	perPacket := (MaxPacketBytes - 1) / changeEntryLen
	var packets [][]byte
	for len(entries) > 0 {
		n := len(entries)
		if n > perPacket {
			n = perPacket
		}
		packets = append(packets, encodeChange(entries[:n]))
		entries = entries[n:]
	}
	return packets
}

func encodeChange(entries []ChangeEntry) []byte {
	buf := make([]byte, 1+len(entries)*changeEntryLen)
	buf[0] = TypeChangeLVZ
	for i, e := range entries {
		off := 1 + i*changeEntryLen
		binary.LittleEndian.PutUint16(buf[off:], e.ID)
		binary.LittleEndian.PutUint16(buf[off+2:], uint16(e.X))
		binary.LittleEndian.PutUint16(buf[off+4:], uint16(e.Y))
		buf[off+6] = e.ImageID
		buf[off+7] = encodeLayerByte(e.Space, e.ScreenOffset, e.Layer)
		buf[off+8] = e.Mode
		binary.LittleEndian.PutUint16(buf[off+9:], e.Timer)
	}
	return buf
}

// encodeLayerByte packs layer (bits 0-2), coordinate space (bit 3),
// and screen offset (bits 4-7) into one byte, keeping ChangeEntry's
// wire shape at 11 bytes total.
func encodeLayerByte(space CoordSpace, offset ScreenOffset, layer uint8) byte {
	b := layer & 0x07
	if space == SpaceScreen {
		b |= 0x08
	}
	b |= (byte(offset) & 0x0F) << 4
	return b
}

func decodeLayerByte(b byte) (CoordSpace, ScreenOffset, uint8) {
	space := SpaceMap
	if b&0x08 != 0 {
		space = SpaceScreen
	}
	return space, ScreenOffset(b >> 4 & 0x0F), b & 0x07
}

// DecodeToggle parses the entries of an inbound ToggleLVZ payload
// (type byte already stripped), as received on the rebroadcast path.
func DecodeToggle(body []byte) ([]ToggleEntry, error) {
	if len(body) == 0 || len(body)%toggleEntryLen != 0 {
		return nil, fmt.Errorf("lvz: malformed ToggleLVZ length %d", len(body))
	}
	entries := make([]ToggleEntry, 0, len(body)/toggleEntryLen)
	for off := 0; off < len(body); off += toggleEntryLen {
		raw := binary.LittleEndian.Uint16(body[off:])
		entries = append(entries, ToggleEntry{
			ID:      raw & 0x7FFF,
			Enabled: raw&0x8000 == 0,
		})
	}
	return entries, nil
}

// DecodeChange parses the entries of an inbound ChangeLVZ payload
// (type byte already stripped).
func DecodeChange(body []byte) ([]ChangeEntry, error) {
	if len(body) == 0 || len(body)%changeEntryLen != 0 {
		return nil, fmt.Errorf("lvz: malformed ChangeLVZ length %d", len(body))
	}
	entries := make([]ChangeEntry, 0, len(body)/changeEntryLen)
	for off := 0; off < len(body); off += changeEntryLen {
		var e ChangeEntry
		e.ID = binary.LittleEndian.Uint16(body[off:])
		e.X = int16(binary.LittleEndian.Uint16(body[off+2:]))
		e.Y = int16(binary.LittleEndian.Uint16(body[off+4:]))
		e.ImageID = body[off+6]
		e.Space, e.ScreenOffset, e.Layer = decodeLayerByte(body[off+7])
		e.Mode = body[off+8]
		e.Timer = binary.LittleEndian.Uint16(body[off+9:])
		entries = append(entries, e)
	}
	return entries, nil
}
