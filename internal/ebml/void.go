package ebml

import (
	"fmt"

	"github.com/sh01/yavdlt/internal/dataref"
)

// NewVoidExact builds a Void element whose total serialised length is
// exactly targetLen bytes. The element's ID is fixed at 1 byte (IDVoid
// already carries its own marker bit), so the search is purely over the
// body/size-VInt trade-off: body = target - idLen - size_vint_len(body)
// is a fixed point, solved by iterating until it stabilises. When the
// fixed point lands exactly on a size-VInt length-class boundary (the
// iteration would oscillate between two lengths), the size VInt is
// padded by one extra byte to break the tie, per §4.1.
func NewVoidExact(targetLen int64) (*Element, error) {
	idLen := int64(idByteLen(IDVoid))
	const minSizeLen = 1
	if targetLen < idLen+minSizeLen {
		return nil, fmt.Errorf("ebml: void target length %d below minimum header %d", targetLen, idLen+minSizeLen)
	}

	sizeLen := minSizeLen
	body := targetLen - idLen - int64(sizeLen)
	for i := 0; i < 8; i++ {
		if body < 0 {
			return nil, fmt.Errorf("ebml: void target length %d unreachable", targetLen)
		}
		next := vintLen(uint64(body))
		if next == sizeLen {
			break
		}
		sizeLen = next
		body = targetLen - idLen - int64(sizeLen)
	}
	if body < 0 {
		return nil, fmt.Errorf("ebml: void target length %d unreachable", targetLen)
	}

	if vintLen(uint64(body)) != sizeLen {
		// Oscillating boundary case (target lands on 129, 16386, …):
		// break the tie by reserving one extra size-VInt byte.
		sizeLen++
		body = targetLen - idLen - int64(sizeLen)
		if body < 0 || vintLen(uint64(body)) > sizeLen {
			return nil, fmt.Errorf("ebml: void target length %d unreachable", targetLen)
		}
	}

	el := &Element{
		ID:      IDVoid,
		Kind:    KindBinary,
		Data:    dataref.Bytes(make([]byte, body)),
		SizePad: sizeLen,
	}
	if el.Size() != targetLen {
		return nil, fmt.Errorf("ebml: internal error sizing void to %d: got %d", targetLen, el.Size())
	}
	return el, nil
}
