package ticket

import (
	"math/big"

	"github.com/ticketbase/ticketd/errors"
)

// Field positions of the registry's ticket tuple, in ABI declaration order.
const tupleLen = 15

// DecodeTuple maps one registry tuple, already unpacked to ordered field
// values, onto a Record. The registry ABI is fixed, so a short tuple or a
// field of the wrong dynamic type means the caller read the wrong contract.
func DecodeTuple(fields []any) (*Record, error) {
	if len(fields) != tupleLen {
		return nil, errors.Newf(errors.CodeGateway,
			"registry tuple has %d fields, want %d", len(fields), tupleLen)
	}

	rec := &Record{
		ID:                toUint64(fields[0]),
		Creator:           toString(fields[1]),
		Price:             toBig(fields[2]),
		EventName:         toString(fields[3]),
		Description:       toString(fields[4]),
		EventTimestamp:    int64(toUint64(fields[5])),
		Location:          toString(fields[6]),
		Closed:            toBool(fields[7]),
		Canceled:          toBool(fields[8]),
		Metadata:          toString(fields[9]),
		MaxSupply:         toBig(fields[10]),
		Sold:              toBig(fields[11]),
		TotalCollected:    toBig(fields[12]),
		TotalRefunded:     toBig(fields[13]),
		ProceedsWithdrawn: toBool(fields[14]),
	}
	return rec, nil
}

// DecodeTuples maps a slice of registry tuples onto Records, preserving
// order. A single bad tuple fails the whole decode; partial registry reads
// are never surfaced as success.
func DecodeTuples(tuples [][]any) ([]*Record, error) {
	out := make([]*Record, 0, len(tuples))
	for _, fields := range tuples {
		rec, err := DecodeTuple(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toBig(v any) *big.Int {
	switch x := v.(type) {
	case *big.Int:
		return x
	case uint64:
		return new(big.Int).SetUint64(x)
	case int64:
		return big.NewInt(x)
	default:
		return big.NewInt(0)
	}
}

func toUint64(v any) uint64 {
	switch x := v.(type) {
	case *big.Int:
		return x.Uint64()
	case uint64:
		return x
	case int64:
		return uint64(x)
	default:
		return 0
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if st, ok := v.(interface{ String() string }); ok {
		return st.String()
	}
	return ""
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}
