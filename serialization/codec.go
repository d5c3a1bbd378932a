package serialization

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"
	"github.com/ugorji/go/codec"
)

var cborEncMode = mustCBOREncMode()

func mustCBOREncMode() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}

var mgpkHandle = newMgpkHandle()

func newMgpkHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.Canonical = true
	return h
}

// marshal encodes v under kind's wire family.
func marshal(kind Kind, v interface{}) ([]byte, error) {
	switch kind {
	case JSON:
		return json.Marshal(v)
	case CBOR:
		return cborEncMode.Marshal(v)
	case MGPK:
		var buf bytes.Buffer
		enc := codec.NewEncoder(&buf, mgpkHandle)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// unmarshal decodes data under kind's wire family into v.
func unmarshal(kind Kind, data []byte, v interface{}) error {
	switch kind {
	case JSON:
		return json.Unmarshal(data, v)
	case CBOR:
		return cbor.Unmarshal(data, v)
	case MGPK:
		dec := codec.NewDecoderBytes(data, mgpkHandle)
		return dec.Decode(v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
