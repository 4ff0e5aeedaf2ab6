package exchangepb

import (
	"encoding/binary"
	"fmt"
)

// Codec implements google.golang.org/grpc/encoding.Codec for the two
// message types ExchangeService exchanges. It is a plain fixed-field
// big-endian framing rather than a protobuf wire encoding, because this
// module does not run protoc and therefore has no descriptor to drive
// the standard "proto" codec. Both streamworker's server and its client
// dialer install this codec explicitly (grpc.ForceServerCodec /
// grpc.ForceCodec), so it never needs to be registered process-wide.
type Codec struct{}

func (Codec) Name() string { return "flowcore-exchange" }

func (Codec) Marshal(v interface{}) ([]byte, error) {
	switch m := v.(type) {
	case *PullRequest:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint32(buf[0:4], m.UpFragmentID)
		binary.BigEndian.PutUint32(buf[4:8], m.DownFragmentID)
		return buf, nil
	case *ExchangeEnvelope:
		buf := make([]byte, 13, 13+len(m.Payload))
		binary.BigEndian.PutUint64(buf[0:8], m.Epoch)
		buf[8] = byte(m.Kind)
		binary.BigEndian.PutUint32(buf[9:13], uint32(len(m.Payload)))
		buf = append(buf, m.Payload...)
		return buf, nil
	default:
		return nil, fmt.Errorf("exchangepb: codec cannot marshal %T", v)
	}
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	switch m := v.(type) {
	case *PullRequest:
		if len(data) < 8 {
			return fmt.Errorf("exchangepb: truncated PullRequest (%d bytes)", len(data))
		}
		m.UpFragmentID = binary.BigEndian.Uint32(data[0:4])
		m.DownFragmentID = binary.BigEndian.Uint32(data[4:8])
		return nil
	case *ExchangeEnvelope:
		if len(data) < 13 {
			return fmt.Errorf("exchangepb: truncated ExchangeEnvelope header (%d bytes)", len(data))
		}
		m.Epoch = binary.BigEndian.Uint64(data[0:8])
		m.Kind = EnvelopeKind(data[8])
		n := binary.BigEndian.Uint32(data[9:13])
		if uint32(len(data)-13) < n {
			return fmt.Errorf("exchangepb: truncated ExchangeEnvelope payload")
		}
		m.Payload = append([]byte(nil), data[13:13+n]...)
		return nil
	default:
		return fmt.Errorf("exchangepb: codec cannot unmarshal into %T", v)
	}
}
