package session

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client packet types
const (
	PacketRoomList    = "room_list"
	PacketCreateRoom  = "create_room"
	PacketJoinRoom    = "join_room"
	PacketLeaveRoom   = "leave_room"
	PacketSwitchReady = "switch_ready"
	PacketStartGame   = "start_game"
	PacketStartRound  = "start_round"
	PacketStartTurn   = "start_turn"
	PacketSayWord     = "say_word"
	PacketReportUser  = "report_user"
)

// Server-initiated packet types
const (
	PacketWelcome       = "welcome"
	PacketTimerTick     = "timer_tick"
	PacketTurnEnd       = "turn_end"
	PacketRoundEnd      = "round_end"
	PacketGameEnd       = "game_end"
	PacketOwnerChanged  = "owner_changed"
	PacketUserJoined    = "user_joined"
	PacketUserLeft      = "user_left"
	PacketReadyChanged  = "ready_changed"
	PacketRoomDestroyed = "room_destroyed"
	PacketBanned        = "banned"
	PacketError         = "error"
)

// Packet is a decoded client frame. Every frame on the wire is a
// marshalled structpb.Struct of the form {type: string, data: object}.
type Packet struct {
	Type string
	Data *structpb.Struct
}

func EncodePacket(packetType string, data map[string]any) ([]byte, error) {
	fields := map[string]any{"type": packetType}
	if data != nil {
		fields["data"] = data
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func DecodePacket(raw []byte) (Packet, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(raw, s); err != nil {
		return Packet{}, fmt.Errorf("%w: %w", ErrMalformedPacket, err)
	}

	packetType := s.GetFields()["type"].GetStringValue()
	if packetType == "" {
		return Packet{}, ErrMalformedPacket
	}

	data := s.GetFields()["data"].GetStructValue()
	if data == nil {
		data = &structpb.Struct{Fields: map[string]*structpb.Value{}}
	}
	return Packet{Type: packetType, Data: data}, nil
}

func (p Packet) String(key string) string {
	return p.Data.GetFields()[key].GetStringValue()
}

func (p Packet) Bool(key string) (bool, bool) {
	v, ok := p.Data.GetFields()[key]
	if !ok {
		return false, false
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, false
	}
	return b.BoolValue, true
}

// Int reads an integral number field.
func (p Packet) Int(key string) (int64, bool) {
	v, ok := p.Data.GetFields()[key]
	if !ok {
		return 0, false
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
