package protocol

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Variant is the stable discriminant of a Message on the wire.
// Values are never reused; changing one requires a new DefaultVersion.
type Variant uint64

const (
	VariantPlayerFrame  Variant = 1
	VariantPlayerUpdate Variant = 2
	VariantWelcome      Variant = 3
	VariantPlayerStates Variant = 4
	VariantPlayerLeft   Variant = 5
)

// Message is the closed set of game payloads.
type Message interface {
	Variant() Variant
	appendFields(b []byte) []byte
}

// PlayerFrame carries a client's raw directional intent for one tick.
type PlayerFrame struct {
	Input Vec2
}

// PlayerUpdate carries the recipient's authoritative position.
type PlayerUpdate struct {
	Position Vec3
}

// Welcome tells a freshly connected client its server-assigned player id.
type Welcome struct {
	Player uint32
}

// PlayerState is one player's entry in a PlayerStates broadcast.
type PlayerState struct {
	Player   uint32
	Position Vec3
}

// PlayerStates is the per-tick snapshot of every connected player.
type PlayerStates struct {
	Tick    uint32
	Players []PlayerState
}

// PlayerLeft announces that a player's connection is gone.
type PlayerLeft struct {
	Player uint32
}

func (PlayerFrame) Variant() Variant  { return VariantPlayerFrame }
func (PlayerUpdate) Variant() Variant { return VariantPlayerUpdate }
func (Welcome) Variant() Variant      { return VariantWelcome }
func (PlayerStates) Variant() Variant { return VariantPlayerStates }
func (PlayerLeft) Variant() Variant   { return VariantPlayerLeft }

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrMalformed      = errors.New("malformed message")
	ErrUnknownVariant = errors.New("unknown message variant")
)

// DecodeReason classifies a DecodeError.
type DecodeReason uint8

const (
	Malformed DecodeReason = iota + 1
	UnknownVariant
)

// A DecodeError reports a payload that could not be turned into a Message.
// It is never fatal: the caller drops the payload and carries on.
type DecodeError struct {
	Reason  DecodeReason
	Variant Variant // set for UnknownVariant
	Err     error   // underlying wire error, if any
}

func (e *DecodeError) Error() string {
	switch e.Reason {
	case UnknownVariant:
		return fmt.Sprintf("unknown message variant: %d", e.Variant)
	default:
		if e.Err != nil {
			return fmt.Sprintf("malformed message: %v", e.Err)
		}
		return "malformed message"
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformed) and errors.Is(err, ErrUnknownVariant) work.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrMalformed:
		return e.Reason == Malformed
	case ErrUnknownVariant:
		return e.Reason == UnknownVariant
	}
	return false
}

func malformed(err error) *DecodeError {
	return &DecodeError{Reason: Malformed, Err: err}
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// EncodeMessage serializes m as a varint discriminant followed by its fields.
func EncodeMessage(m Message) []byte {
	b := protowire.AppendVarint(make([]byte, 0, 32), uint64(m.Variant()))
	return m.appendFields(b)
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func (m PlayerFrame) appendFields(b []byte) []byte {
	b = appendFloat(b, 1, m.Input.X)
	return appendFloat(b, 2, m.Input.Y)
}

func (m PlayerUpdate) appendFields(b []byte) []byte {
	b = appendFloat(b, 1, m.Position.X)
	b = appendFloat(b, 2, m.Position.Y)
	return appendFloat(b, 3, m.Position.Z)
}

func (m Welcome) appendFields(b []byte) []byte {
	return appendUint(b, 1, uint64(m.Player))
}

func (m PlayerState) appendFields(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.Player))
	b = appendFloat(b, 2, m.Position.X)
	b = appendFloat(b, 3, m.Position.Y)
	return appendFloat(b, 4, m.Position.Z)
}

func (m PlayerStates) appendFields(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.Tick))
	for _, p := range m.Players {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, p.appendFields(nil))
	}
	return b
}

func (m PlayerLeft) appendFields(b []byte) []byte {
	return appendUint(b, 1, uint64(m.Player))
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// DecodeMessage parses a payload produced by EncodeMessage. It returns a
// *DecodeError for empty, truncated or corrupt input and for unknown variants.
func DecodeMessage(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, malformed(errors.New("empty payload"))
	}

	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, malformed(protowire.ParseError(n))
	}
	data = data[n:]

	var (
		m   Message
		err error
	)
	switch Variant(v) {
	case VariantPlayerFrame:
		var f PlayerFrame
		err = walkFields(data, func(num protowire.Number, r *fieldReader) {
			switch num {
			case 1:
				f.Input.X = r.float()
			case 2:
				f.Input.Y = r.float()
			default:
				r.skip()
			}
		})
		m = f
	case VariantPlayerUpdate:
		var u PlayerUpdate
		err = walkFields(data, func(num protowire.Number, r *fieldReader) {
			switch num {
			case 1:
				u.Position.X = r.float()
			case 2:
				u.Position.Y = r.float()
			case 3:
				u.Position.Z = r.float()
			default:
				r.skip()
			}
		})
		m = u
	case VariantWelcome:
		var w Welcome
		err = walkFields(data, func(num protowire.Number, r *fieldReader) {
			if num == 1 {
				w.Player = r.uint32()
			} else {
				r.skip()
			}
		})
		m = w
	case VariantPlayerStates:
		var s PlayerStates
		err = walkFields(data, func(num protowire.Number, r *fieldReader) {
			switch num {
			case 1:
				s.Tick = r.uint32()
			case 2:
				if p, ok := decodePlayerState(r.bytes()); ok {
					s.Players = append(s.Players, p)
				} else {
					r.fail(errors.New("bad player state"))
				}
			default:
				r.skip()
			}
		})
		m = s
	case VariantPlayerLeft:
		var l PlayerLeft
		err = walkFields(data, func(num protowire.Number, r *fieldReader) {
			if num == 1 {
				l.Player = r.uint32()
			} else {
				r.skip()
			}
		})
		m = l
	default:
		return nil, &DecodeError{Reason: UnknownVariant, Variant: Variant(v)}
	}

	if err != nil {
		return nil, malformed(err)
	}
	return m, nil
}

func decodePlayerState(data []byte) (PlayerState, bool) {
	var p PlayerState
	err := walkFields(data, func(num protowire.Number, r *fieldReader) {
		switch num {
		case 1:
			p.Player = r.uint32()
		case 2:
			p.Position.X = r.float()
		case 3:
			p.Position.Y = r.float()
		case 4:
			p.Position.Z = r.float()
		default:
			r.skip()
		}
	})
	return p, err == nil
}

// fieldReader consumes the value of the field whose tag walkFields just read.
// The first failure sticks; later reads return zero values.
type fieldReader struct {
	num  protowire.Number
	typ  protowire.Type
	data []byte
	n    int
	err  error
}

func (r *fieldReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *fieldReader) expect(typ protowire.Type) bool {
	if r.typ != typ {
		r.fail(fmt.Errorf("field %d: wire type %d, want %d", r.num, r.typ, typ))
		return false
	}
	return true
}

func (r *fieldReader) consumed(n int) bool {
	if n < 0 {
		r.fail(fmt.Errorf("field %d: %w", r.num, protowire.ParseError(n)))
		return false
	}
	r.n = n
	return true
}

func (r *fieldReader) float() float32 {
	if !r.expect(protowire.Fixed32Type) {
		return 0
	}
	v, n := protowire.ConsumeFixed32(r.data)
	if !r.consumed(n) {
		return 0
	}
	return math.Float32frombits(v)
}

func (r *fieldReader) uint32() uint32 {
	if !r.expect(protowire.VarintType) {
		return 0
	}
	v, n := protowire.ConsumeVarint(r.data)
	if !r.consumed(n) {
		return 0
	}
	if v > math.MaxUint32 {
		r.fail(fmt.Errorf("field %d: %d overflows uint32", r.num, v))
		return 0
	}
	return uint32(v)
}

func (r *fieldReader) bytes() []byte {
	if !r.expect(protowire.BytesType) {
		return nil
	}
	v, n := protowire.ConsumeBytes(r.data)
	if !r.consumed(n) {
		return nil
	}
	return v
}

func (r *fieldReader) skip() {
	r.consumed(protowire.ConsumeFieldValue(r.num, r.typ, r.data))
}

// walkFields calls fn once per field in data. fn must consume the value
// through the reader exactly once.
func walkFields(data []byte, fn func(protowire.Number, *fieldReader)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		r := &fieldReader{num: num, typ: typ, data: data, n: -1}
		fn(num, r)
		if r.err != nil {
			return r.err
		}
		if r.n < 0 {
			return fmt.Errorf("field %d: value not consumed", num)
		}
		data = data[r.n:]
	}
	return nil
}
