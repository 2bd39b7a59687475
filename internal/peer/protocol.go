// Package peer implements peer-zone federation: UDP exchange of
// arena rosters, player counts and chat between remote zone server
// instances, with password-hash authentication and slot-replay
// de-duplication.
package peer

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
)

// PayloadType is the peer packet's type byte at offset 7.
type PayloadType byte

const (
	TypePlayerList  PayloadType = 1
	TypeChat        PayloadType = 2
	TypeOp          PayloadType = 3
	TypePlayerCount PayloadType = 4
)

const (
	headerLen  = 12
	magicByte0 = 0x00
	magicByte1 = 0x01
	magicByte6 = 0xFF
)

// PasswordHash returns the ones-complemented CRC-32 of password, the
// peer packet's authentication field.
func PasswordHash(password string) uint32 {
	return ^crc32.ChecksumIEEE([]byte(password))
}

// Header is a decoded peer packet header.
type Header struct {
	PasswordHash uint32
	Type         PayloadType
	Timestamp    uint32
}

// LooksLikePeerPacket reports whether data's first bytes match the
// peer-packet magic the router uses to distinguish peer traffic from
// game traffic: len>=12 and bytes[0,1,6] == 0x00,0x01,0xFF.
func LooksLikePeerPacket(data []byte) bool {
	return len(data) >= headerLen &&
		data[0] == magicByte0 && data[1] == magicByte1 && data[6] == magicByte6
}

// DecodeHeader parses the fixed 12-byte peer header, returning the
// payload slice that follows it.
func DecodeHeader(data []byte) (Header, []byte, error) {
	if !LooksLikePeerPacket(data) {
		return Header{}, nil, fmt.Errorf("peer: malformed header magic")
	}
	h := Header{
		PasswordHash: binary.LittleEndian.Uint32(data[2:6]),
		Type:         PayloadType(data[7]),
		Timestamp:    binary.LittleEndian.Uint32(data[8:12]),
	}
	return h, data[headerLen:], nil
}

// EncodeHeader writes the fixed peer header followed by payload.
func EncodeHeader(passwordHash uint32, typ PayloadType, timestamp uint32, payload []byte) []byte {
	buf := make([]byte, headerLen+len(payload))
	buf[0] = magicByte0
	buf[1] = magicByte1
	binary.LittleEndian.PutUint32(buf[2:6], passwordHash)
	buf[6] = magicByte6
	buf[7] = byte(typ)
	binary.LittleEndian.PutUint32(buf[8:12], timestamp)
	copy(buf[headerLen:], payload)
	return buf
}

// ArenaRoster is one arena's id, display name and player names, as
// carried by a PlayerList payload group.
type ArenaRoster struct {
	ArenaID uint32
	Name    string
	Players []string
}

// DecodePlayerList parses repeated {u32 arena_id, cstr name, cstr*
// players, 0x00} groups, forcing each arena name to lower-case in
// place.
func DecodePlayerList(payload []byte) ([]ArenaRoster, error) {
	var rosters []ArenaRoster
	for len(payload) > 0 {
		if len(payload) < 4 {
			return nil, fmt.Errorf("peer: truncated PlayerList arena id")
		}
		arenaID := binary.LittleEndian.Uint32(payload[:4])
		payload = payload[4:]

		name, rest, err := readCString(payload)
		if err != nil {
			return nil, fmt.Errorf("peer: reading arena name: %w", err)
		}
		payload = rest

		var players []string
		for {
			s, rest, err := readCString(payload)
			if err != nil {
				return nil, fmt.Errorf("peer: reading player name: %w", err)
			}
			payload = rest
			if s == "" {
				break
			}
			players = append(players, s)
		}

		rosters = append(rosters, ArenaRoster{
			ArenaID: arenaID,
			Name:    strings.ToLower(name),
			Players: players,
		})
	}
	return rosters, nil
}

// EncodePlayerList serializes rosters into the PlayerList payload
// format.
func EncodePlayerList(rosters []ArenaRoster) []byte {
	var buf []byte
	for _, r := range rosters {
		idBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(idBuf, r.ArenaID)
		buf = append(buf, idBuf...)
		buf = append(buf, []byte(r.Name)...)
		buf = append(buf, 0x00)
		for _, p := range r.Players {
			buf = append(buf, []byte(p)...)
			buf = append(buf, 0x00)
		}
		buf = append(buf, 0x00)
	}
	return buf
}

// EncodePlayerCount serializes a PlayerCount payload: {u16 count}.
func EncodePlayerCount(count uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, count)
	return buf
}

// DecodePlayerCount parses a PlayerCount payload.
func DecodePlayerCount(payload []byte) (uint16, error) {
	if len(payload) < 2 {
		return 0, fmt.Errorf("peer: truncated PlayerCount payload")
	}
	return binary.LittleEndian.Uint16(payload[:2]), nil
}

// ChatMessage is a decoded Chat/Op payload: {u8 msg_type, cstr text}.
type ChatMessage struct {
	MsgType byte
	Text    string
}

// DecodeChat parses a Chat or Op payload.
func DecodeChat(payload []byte) (ChatMessage, error) {
	if len(payload) < 1 {
		return ChatMessage{}, fmt.Errorf("peer: truncated Chat/Op payload")
	}
	text, _, err := readCString(payload[1:])
	if err != nil {
		return ChatMessage{}, err
	}
	return ChatMessage{MsgType: payload[0], Text: text}, nil
}

// EncodeChat serializes a Chat or Op payload.
func EncodeChat(msg ChatMessage) []byte {
	buf := make([]byte, 0, 2+len(msg.Text))
	buf = append(buf, msg.MsgType)
	buf = append(buf, []byte(msg.Text)...)
	buf = append(buf, 0x00)
	return buf
}

func readCString(data []byte) (s string, rest []byte, err error) {
	for i, b := range data {
		if b == 0x00 {
			return string(data[:i]), data[i+1:], nil
		}
	}
	return "", nil, fmt.Errorf("peer: unterminated string")
}
