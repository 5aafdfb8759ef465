package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/known/structpb"
)

func AssertProtoEq(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	diff := cmp.Diff(expected, actual, protocmp.Transform())
	if diff != "" {
		assert.Fail(t, "Protobuf mismatch (-want +got):\n"+diff, msgAndArgs...)
	}
}

func TestEncodePacket(t *testing.T) {
	frame, err := EncodePacket(PacketSayWord, map[string]any{"word": "가방", "scoreDelta": 29})
	require.NoError(t, err)

	got := &structpb.Struct{}
	require.NoError(t, proto.Unmarshal(frame, got))

	expected := &structpb.Struct{Fields: map[string]*structpb.Value{
		"type": structpb.NewStringValue(PacketSayWord),
		"data": structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"word":       structpb.NewStringValue("가방"),
			"scoreDelta": structpb.NewNumberValue(29),
		}}),
	}}
	AssertProtoEq(t, expected, got)
}

func TestEncodePacket_RejectsUnsupportedValues(t *testing.T) {
	_, err := EncodePacket(PacketError, map[string]any{"bad": struct{}{}})
	assert.Error(t, err)
}

func TestDecodePacket(t *testing.T) {
	encode := func(fields map[string]any) []byte {
		s, err := structpb.NewStruct(fields)
		require.NoError(t, err)
		data, err := proto.Marshal(s)
		require.NoError(t, err)
		return data
	}

	testCases := []struct {
		desc     string
		raw      []byte
		expected string
		err      error
	}{
		{desc: "garbage", raw: []byte{1, 5}, err: ErrMalformedPacket},
		{desc: "missing type", raw: encode(map[string]any{"data": map[string]any{}}), err: ErrMalformedPacket},
		{desc: "numeric type", raw: encode(map[string]any{"type": 3}), err: ErrMalformedPacket},
		{desc: "no data", raw: encode(map[string]any{"type": "room_list"}), expected: "room_list"},
		{desc: "with data", raw: encode(map[string]any{"type": "join_room", "data": map[string]any{"roomId": "r"}}), expected: "join_room"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			p, err := DecodePacket(tc.raw)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, p.Type)
			assert.NotNil(t, p.Data)
		})
	}
}

func TestPacketFields(t *testing.T) {
	data, err := structpb.NewStruct(map[string]any{
		"word":  "가방",
		"ready": true,
		"count": 3,
		"half":  1.5,
		"text":  "7",
	})
	require.NoError(t, err)
	p := Packet{Type: "x", Data: data}

	assert.Equal(t, "가방", p.String("word"))
	assert.Equal(t, "", p.String("missing"))
	assert.Equal(t, "", p.String("count"))

	ready, ok := p.Bool("ready")
	assert.True(t, ok)
	assert.True(t, ready)
	_, ok = p.Bool("word")
	assert.False(t, ok)

	n, ok := p.Int("count")
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)
	_, ok = p.Int("half")
	assert.False(t, ok, "fractional numbers are not integers")
	_, ok = p.Int("text")
	assert.False(t, ok)
	_, ok = p.Int("missing")
	assert.False(t, ok)
}
