package domain

import "github.com/google/uuid"

// SessionID は1接続の論理セッションを識別するIDです。ワイヤ上では16バイトで表現します。
type SessionID [16]byte

func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

func SessionIDFromBytes(b [16]byte) SessionID {
	return SessionID(b)
}

func (s SessionID) String() string {
	return uuid.UUID(s).String()
}

func (s SessionID) Bytes() [16]byte {
	return [16]byte(s)
}

func (s SessionID) IsEmpty() bool {
	return s == SessionID{}
}

// RoomID はルームを識別するIDです。SessionIDと同様に16バイトで表現します。
type RoomID [16]byte

func NewRoomID() RoomID {
	return RoomID(uuid.New())
}

func RoomIDFromBytes(b [16]byte) RoomID {
	return RoomID(b)
}

// RoomIDFromString はUUID文字列からRoomIDをパースします。
func RoomIDFromString(s string) (RoomID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RoomID{}, err
	}
	return RoomID(u), nil
}

func (r RoomID) String() string {
	return uuid.UUID(r).String()
}

func (r RoomID) Bytes() [16]byte {
	return [16]byte(r)
}

func (r RoomID) IsEmpty() bool {
	return r == RoomID{}
}
