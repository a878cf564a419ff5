package domain

import (
	"encoding/binary"
	"errors"
	"time"
)

// バイトオーダー: リトルエンディアン
var byteOrder = binary.LittleEndian

const (
	HeaderSize        = 25
	PayloadHeaderSize = 2
)

// Header はメッセージヘッダー (25バイト)
//
//	version    u8      (1)
//	sessionID  [16]byte (16)
//	seq        u16     (2)
//	length     u16     (2)  - ペイロード長
//	timestamp  u32     (4)
type Header struct {
	Version   uint8
	SessionID [16]byte
	Seq       uint16
	Length    uint16
	Timestamp uint32
}

// DataType はメッセージの種別
type DataType uint8

const (
	DataTypeControl DataType = 1
	DataTypeInput   DataType = 2
	DataTypeState   DataType = 3
)

// ControlSubType はcontrolメッセージのサブタイプ
type ControlSubType uint8

const (
	ControlSubTypeJoin   ControlSubType = 1
	ControlSubTypeLeave  ControlSubType = 2
	ControlSubTypePing   ControlSubType = 3
	ControlSubTypePong   ControlSubType = 4
	ControlSubTypeError  ControlSubType = 5
	ControlSubTypeAssign ControlSubType = 6
	ControlSubTypeStart  ControlSubType = 7
	ControlSubTypeReset  ControlSubType = 8
)

// InputSubType はinputメッセージのサブタイプ
type InputSubType uint8

const (
	InputSubTypeJump     InputSubType = 1
	InputSubTypePosition InputSubType = 2
)

// StateSubType はstateメッセージのサブタイプ。ルームからクライアントへの配信専用です。
type StateSubType uint8

const (
	StateSubTypeRoomState    StateSubType = 1
	StateSubTypeScore        StateSubType = 2
	StateSubTypeObstacleSync StateSubType = 3
	StateSubTypeDeath        StateSubType = 4
	StateSubTypeGameOver     StateSubType = 5
)

// PayloadHeader はペイロードヘッダー (2バイト)
//
//	datatype  u8 (1)
//	subtype   u8 (1)
type PayloadHeader struct {
	DataType DataType
	SubType  uint8
}

var (
	ErrInvalidHeaderSize  = errors.New("invalid header size")
	ErrInvalidPayloadSize = errors.New("invalid payload size")
)

// ParseHeader はバイト列からHeaderをパースする
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidHeaderSize
	}

	var sessionID [16]byte
	copy(sessionID[:], data[1:17])

	return &Header{
		Version:   data[0],
		SessionID: sessionID,
		Seq:       byteOrder.Uint16(data[17:19]),
		Length:    byteOrder.Uint16(data[19:21]),
		Timestamp: byteOrder.Uint32(data[21:25]),
	}, nil
}

// Encode はHeaderをバイト列にエンコードする
func (h *Header) Encode() []byte {
	data := make([]byte, HeaderSize)
	data[0] = h.Version
	copy(data[1:17], h.SessionID[:])
	byteOrder.PutUint16(data[17:19], h.Seq)
	byteOrder.PutUint16(data[19:21], h.Length)
	byteOrder.PutUint32(data[21:25], h.Timestamp)
	return data
}

// ParsePayloadHeader はバイト列からPayloadHeaderをパースする
func ParsePayloadHeader(data []byte) (*PayloadHeader, error) {
	if len(data) < PayloadHeaderSize {
		return nil, ErrInvalidPayloadSize
	}

	return &PayloadHeader{
		DataType: DataType(data[0]),
		SubType:  data[1],
	}, nil
}

// Encode はPayloadHeaderをバイト列にエンコードする
func (p *PayloadHeader) Encode() []byte {
	data := make([]byte, PayloadHeaderSize)
	data[0] = byte(p.DataType)
	data[1] = byte(p.SubType)
	return data
}

// EncodeFrame はヘッダーとペイロードから1フレームを組み立てる
func EncodeFrame(sessionID SessionID, seq uint16, dataType DataType, subType uint8, payload []byte) []byte {
	header := Header{
		Version:   1,
		SessionID: sessionID.Bytes(),
		Seq:       seq,
		Length:    uint16(PayloadHeaderSize + len(payload)),
		Timestamp: uint32(time.Now().UnixMilli() & 0xFFFFFFFF),
	}
	payloadHeader := PayloadHeader{
		DataType: dataType,
		SubType:  subType,
	}

	data := make([]byte, 0, HeaderSize+PayloadHeaderSize+len(payload))
	data = append(data, header.Encode()...)
	data = append(data, payloadHeader.Encode()...)
	data = append(data, payload...)
	return data
}

// EncodeAssignMessage はセッションID通知メッセージをエンコードする
// クライアントに自分のセッションIDを通知するために使用
func EncodeAssignMessage(sessionID SessionID) []byte {
	return EncodeFrame(sessionID, 0, DataTypeControl, uint8(ControlSubTypeAssign), nil)
}

// EncodeJoinMessage はルーム参加メッセージをエンコードする
func EncodeJoinMessage(sessionID SessionID, roomID RoomID) []byte {
	payload := JoinPayload{RoomID: roomID}
	return EncodeFrame(sessionID, 0, DataTypeControl, uint8(ControlSubTypeJoin), payload.Encode())
}

// EncodeLeaveMessage はルーム離脱メッセージをエンコードする
// 異常切断時にclose()からRoom離脱を通知するために使用
func EncodeLeaveMessage(sessionID SessionID) []byte {
	return EncodeFrame(sessionID, 0, DataTypeControl, uint8(ControlSubTypeLeave), nil)
}

// EncodePingMessage はPingメッセージをエンコードする
// クライアントに死活確認のpingを送信するために使用
func EncodePingMessage(sessionID SessionID) []byte {
	return EncodeFrame(sessionID, 0, DataTypeControl, uint8(ControlSubTypePing), nil)
}

// EncodePongMessage はPongメッセージをエンコードする
func EncodePongMessage(sessionID SessionID) []byte {
	return EncodeFrame(sessionID, 0, DataTypeControl, uint8(ControlSubTypePong), nil)
}

// EncodeErrorMessage はエラー通知メッセージをエンコードする
func EncodeErrorMessage(sessionID SessionID, code ErrorCode) []byte {
	payload := ErrorPayload{Code: code}
	return EncodeFrame(sessionID, 0, DataTypeControl, uint8(ControlSubTypeError), payload.Encode())
}
