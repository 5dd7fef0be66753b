package usecases

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

// errUncacheable marks a result holding a column type the codec cannot
// reproduce exactly. Such results are served but not cached.
var errUncacheable = errors.New("value type not cacheable")

// Every value carries its Go type so a cache hit returns exactly what the
// database returned: int64 stays int64, time.Time stays time.Time.
type cachedValue struct {
	Kind string          `cbor:"k"`
	Data cbor.RawMessage `cbor:"v,omitempty"`
}

const (
	kindNil     = "nil"
	kindBool    = "bool"
	kindInt16   = "int16"
	kindInt32   = "int32"
	kindInt64   = "int64"
	kindFloat32 = "float32"
	kindFloat64 = "float64"
	kindString  = "string"
	kindBytes   = "bytes"
	kindTime    = "time"
	kindUUID    = "uuid"
	kindList    = "list"
	kindMap     = "map"
)

func encodeRecords(records []domain.Record) ([]byte, error) {
	rows := make([]map[string]cachedValue, len(records))
	for i, r := range records {
		row := make(map[string]cachedValue, len(r))
		for col, v := range r {
			cv, err := encodeValue(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			row[col] = cv
		}
		rows[i] = row
	}
	return cbor.Marshal(rows)
}

func decodeRecords(data []byte) ([]domain.Record, error) {
	var rows []map[string]cachedValue
	if err := cbor.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	records := make([]domain.Record, len(rows))
	for i, row := range rows {
		r := make(domain.Record, len(row))
		for col, cv := range row {
			v, err := decodeValue(cv)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			r[col] = v
		}
		records[i] = r
	}
	return records, nil
}

func encodeValue(v any) (cachedValue, error) {
	var kind string
	payload := v

	switch x := v.(type) {
	case nil:
		return cachedValue{Kind: kindNil}, nil
	case bool:
		kind = kindBool
	case int16:
		kind = kindInt16
	case int32:
		kind = kindInt32
	case int64:
		kind = kindInt64
	case float32:
		kind = kindFloat32
	case float64:
		kind = kindFloat64
	case string:
		kind = kindString
	case []byte:
		kind = kindBytes
	case [16]byte:
		kind, payload = kindUUID, x[:]
	case time.Time:
		b, err := x.MarshalBinary()
		if err != nil {
			return cachedValue{}, err
		}
		kind, payload = kindTime, b
	case []any:
		items := make([]cachedValue, len(x))
		for i, item := range x {
			cv, err := encodeValue(item)
			if err != nil {
				return cachedValue{}, err
			}
			items[i] = cv
		}
		kind, payload = kindList, items
	case map[string]any:
		fields := make(map[string]cachedValue, len(x))
		for k, item := range x {
			cv, err := encodeValue(item)
			if err != nil {
				return cachedValue{}, err
			}
			fields[k] = cv
		}
		kind, payload = kindMap, fields
	default:
		return cachedValue{}, fmt.Errorf("%w: %T", errUncacheable, v)
	}

	data, err := cbor.Marshal(payload)
	if err != nil {
		return cachedValue{}, err
	}
	return cachedValue{Kind: kind, Data: data}, nil
}

func decodeValue(cv cachedValue) (any, error) {
	switch cv.Kind {
	case kindNil:
		return nil, nil
	case kindBool:
		return decodeAs[bool](cv.Data)
	case kindInt16:
		return decodeAs[int16](cv.Data)
	case kindInt32:
		return decodeAs[int32](cv.Data)
	case kindInt64:
		return decodeAs[int64](cv.Data)
	case kindFloat32:
		return decodeAs[float32](cv.Data)
	case kindFloat64:
		return decodeAs[float64](cv.Data)
	case kindString:
		return decodeAs[string](cv.Data)
	case kindBytes:
		return decodeAs[[]byte](cv.Data)
	case kindUUID:
		b, err := decodeAs[[]byte](cv.Data)
		if err != nil {
			return nil, err
		}
		var id [16]byte
		if copy(id[:], b) != len(id) {
			return nil, fmt.Errorf("uuid has %d bytes", len(b))
		}
		return id, nil
	case kindTime:
		b, err := decodeAs[[]byte](cv.Data)
		if err != nil {
			return nil, err
		}
		var t time.Time
		if err := t.UnmarshalBinary(b); err != nil {
			return nil, err
		}
		return t, nil
	case kindList:
		items, err := decodeAs[[]cachedValue](cv.Data)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			if out[i], err = decodeValue(item); err != nil {
				return nil, err
			}
		}
		return out, nil
	case kindMap:
		fields, err := decodeAs[map[string]cachedValue](cv.Data)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(fields))
		for k, item := range fields {
			if out[k], err = decodeValue(item); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown cached kind %q", cv.Kind)
}

func decodeAs[T any](data []byte) (T, error) {
	var v T
	err := cbor.Unmarshal(data, &v)
	return v, err
}
