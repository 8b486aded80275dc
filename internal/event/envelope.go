package event

import (
	"github.com/go-faster/jx"
)

// Envelope pairs an event type tag with an opaque serialized payload. The
// wire shape is {"eventType": "...", "data": "..."} where data is itself a
// JSON-encoded domain event.
type Envelope struct {
	EventType Type
	Data      string
}

// Encode renders the envelope to its wire form.
func (e Envelope) Encode() []byte {
	var enc jx.Encoder
	enc.ObjStart()
	enc.FieldStart("eventType")
	enc.Str(string(e.EventType))
	enc.FieldStart("data")
	enc.Str(e.Data)
	enc.ObjEnd()
	return enc.Bytes()
}

// DecodeEnvelope parses an envelope from its wire form. Unknown fields are
// skipped so the format can grow without breaking older consumers.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var e Envelope
	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "eventType":
			s, err := d.Str()
			if err != nil {
				return err
			}
			e.EventType = Type(s)
			return nil
		case "data":
			s, err := d.Str()
			if err != nil {
				return err
			}
			e.Data = s
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
