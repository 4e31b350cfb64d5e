package napi

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"slices"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// maxSafeInteger is the largest integer a host number holds exactly.
const maxSafeInteger = 1<<53 - 1

// maxDepth bounds nesting in both directions and stops reference cycles.
const maxDepth = 64

var (
	serdeEncMode cbor.EncMode
	serdeDecMode cbor.DecMode
)

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("napi: failed to create CBOR enc mode: %v", err))
	}
	serdeEncMode = em

	dm, err := cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels: 2 * maxDepth,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("napi: failed to create CBOR dec mode: %v", err))
	}
	serdeDecMode = dm
}

// ToValue converts a Go value to a host value the way it would be encoded
// as CBOR: structs and maps become objects with sorted keys, field names
// follow `cbor` or `json` tags, slices become arrays, []byte becomes a
// Buffer copy and time.Time becomes an RFC 3339 string. Integers beyond
// ±(2^53-1) become bigints.
func ToValue(env Env, v any) (JsUnknown, error) {
	data, err := serdeEncMode.Marshal(v)
	if err != nil {
		return JsUnknown{}, errors.New(errors.PhaseConvert, errors.KindInvalidArg).
			Status(sys.StatusInvalidArg).
			GoType(fmt.Sprintf("%T", v)).
			Cause(err).
			Detail("encode").
			Build()
	}
	var tree any
	if err := serdeDecMode.Unmarshal(data, &tree); err != nil {
		return JsUnknown{}, errors.Wrap(errors.PhaseConvert, errors.KindGenericFailure, err, "decode")
	}
	raw, err := env.fromTree(tree, 0)
	if err != nil {
		return JsUnknown{}, err
	}
	return env.unknown(raw), nil
}

func (e Env) fromTree(v any, depth int) (sys.Value, error) {
	if depth > maxDepth {
		return 0, errors.InvalidArg(errors.PhaseConvert, "value nested too deeply")
	}
	switch x := v.(type) {
	case nil:
		n, err := e.GetNull()
		return n.raw, err
	case bool:
		b, err := e.GetBoolean(x)
		return b.raw, err
	case uint64:
		if x <= maxSafeInteger {
			n, err := e.CreateDouble(float64(x))
			return n.raw, err
		}
		b, err := e.CreateBigintFromUint64(x)
		return b.raw, err
	case int64:
		if x >= -maxSafeInteger && x <= maxSafeInteger {
			n, err := e.CreateDouble(float64(x))
			return n.raw, err
		}
		b, err := e.CreateBigintFromInt64(x)
		return b.raw, err
	case big.Int:
		b, err := e.CreateBigint(&x)
		return b.raw, err
	case *big.Int:
		b, err := e.CreateBigint(x)
		return b.raw, err
	case float32:
		n, err := e.CreateDouble(float64(x))
		return n.raw, err
	case float64:
		n, err := e.CreateDouble(x)
		return n.raw, err
	case string:
		s, err := e.CreateString(x)
		return s.raw, err
	case []byte:
		b, _, err := e.CreateBufferCopy(x)
		return b.raw, err
	case []any:
		arr, err := e.CreateArrayWithLength(uint32(len(x)))
		if err != nil {
			return 0, err
		}
		for i, item := range x {
			raw, err := e.fromTree(item, depth+1)
			if err != nil {
				return 0, err
			}
			if err := e.check(errors.PhaseConvert, e.api.SetElement(e.raw, arr.raw, uint32(i), raw), "set_element"); err != nil {
				return 0, err
			}
		}
		return arr.raw, nil
	case map[string]any:
		obj, err := e.CreateObject()
		if err != nil {
			return 0, err
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			raw, err := e.fromTree(x[k], depth+1)
			if err != nil {
				return 0, err
			}
			if err := e.check(errors.PhaseConvert, e.api.SetNamedProperty(e.raw, obj.raw, k, raw), "set_named_property"); err != nil {
				return 0, err
			}
		}
		return obj.raw, nil
	case cbor.Tag:
		return e.fromTree(x.Content, depth+1)
	default:
		return 0, errors.New(errors.PhaseConvert, errors.KindInvalidArg).
			Status(sys.StatusInvalidArg).
			GoType(fmt.Sprintf("%T", v)).
			Detail("no host representation").
			Build()
	}
}

// FromValue converts a host value into T. Objects fill struct fields by
// their `cbor` or `json` names, arrays fill slices, integral numbers fill
// integer fields, Buffers fill []byte and Dates fill time.Time. Functions,
// symbols and externals cannot be converted.
func FromValue[T any](env Env, v NapiValue) (T, error) {
	var out T
	if v == nil {
		return out, errors.InvalidArg(errors.PhaseConvert, "nil value")
	}
	tree, err := env.toTree(v.Raw(), 0)
	if err != nil {
		return out, err
	}
	data, err := serdeEncMode.Marshal(tree)
	if err != nil {
		return out, errors.Wrap(errors.PhaseConvert, errors.KindGenericFailure, err, "encode")
	}
	if err := serdeDecMode.Unmarshal(data, &out); err != nil {
		return out, errors.New(errors.PhaseConvert, errors.KindInvalidArg).
			Status(sys.StatusInvalidArg).
			GoType(reflect.TypeFor[T]().String()).
			Cause(err).
			Detail("decode").
			Build()
	}
	return out, nil
}

func (e Env) toTree(raw sys.Value, depth int) (any, error) {
	if depth > maxDepth {
		return nil, errors.InvalidArg(errors.PhaseConvert, "value nested too deeply")
	}
	t, st := e.api.TypeOf(e.raw, raw)
	if err := e.check(errors.PhaseConvert, st, "typeof"); err != nil {
		return nil, err
	}
	switch t {
	case sys.ValueUndefined, sys.ValueNull:
		return nil, nil
	case sys.ValueBoolean:
		b, st := e.api.GetValueBool(e.raw, raw)
		return b, e.check(errors.PhaseConvert, st, "get_value_bool")
	case sys.ValueNumber:
		f, st := e.api.GetValueDouble(e.raw, raw)
		if err := e.check(errors.PhaseConvert, st, "get_value_double"); err != nil {
			return nil, err
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return int64(f), nil
		}
		return f, nil
	case sys.ValueString:
		s, st := e.api.GetValueStringUTF8(e.raw, raw)
		return string(s), e.check(errors.PhaseConvert, st, "get_value_string_utf8")
	case sys.ValueBigint:
		return e.bigintTree(raw)
	case sys.ValueObject:
		return e.objectTree(raw, depth)
	default:
		return nil, errors.New(errors.PhaseConvert, errors.KindInvalidArg).
			Status(sys.StatusInvalidArg).
			HostType(t.String()).
			Detail("no Go representation").
			Build()
	}
}

func (e Env) bigintTree(raw sys.Value) (any, error) {
	sign, words, st := e.api.GetValueBigintWords(e.raw, raw)
	if err := e.check(errors.PhaseConvert, st, "get_value_bigint_words"); err != nil {
		return nil, err
	}
	x := wordsToBig(sign, words)
	switch {
	case x.IsInt64():
		return x.Int64(), nil
	case x.IsUint64():
		return x.Uint64(), nil
	default:
		return x, nil
	}
}

func (e Env) objectTree(raw sys.Value, depth int) (any, error) {
	var err error
	if ok, _ := e.api.IsBuffer(e.raw, raw); ok {
		data, st := e.api.GetBufferInfo(e.raw, raw)
		return slices.Clone(data), e.check(errors.PhaseConvert, st, "get_buffer_info")
	}
	if ok, _ := e.api.IsArrayBuffer(e.raw, raw); ok {
		data, st := e.api.GetArrayBufferInfo(e.raw, raw)
		return slices.Clone(data), e.check(errors.PhaseConvert, st, "get_arraybuffer_info")
	}
	if ok, _ := e.api.IsDate(e.raw, raw); ok {
		ms, st := e.api.GetDateValue(e.raw, raw)
		if err := e.check(errors.PhaseConvert, st, "get_date_value"); err != nil {
			return nil, err
		}
		return time.UnixMilli(int64(ms)).UTC(), nil
	}
	if ok, _ := e.api.IsArray(e.raw, raw); ok {
		n, st := e.api.GetArrayLength(e.raw, raw)
		if err := e.check(errors.PhaseConvert, st, "get_array_length"); err != nil {
			return nil, err
		}
		out := make([]any, n)
		for i := range n {
			item, st := e.api.GetElement(e.raw, raw, i)
			if err := e.check(errors.PhaseConvert, st, "get_element"); err != nil {
				return nil, err
			}
			if out[i], err = e.toTree(item, depth+1); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	names, st := e.api.GetPropertyNames(e.raw, raw)
	if err := e.check(errors.PhaseConvert, st, "get_property_names"); err != nil {
		return nil, err
	}
	n, st := e.api.GetArrayLength(e.raw, names)
	if err := e.check(errors.PhaseConvert, st, "get_array_length"); err != nil {
		return nil, err
	}
	out := make(map[string]any, n)
	for i := range n {
		key, st := e.api.GetElement(e.raw, names, i)
		if err := e.check(errors.PhaseConvert, st, "get_element"); err != nil {
			return nil, err
		}
		name, st := e.api.GetValueStringUTF8(e.raw, key)
		if err := e.check(errors.PhaseConvert, st, "get_value_string_utf8"); err != nil {
			return nil, err
		}
		val, st := e.api.GetNamedProperty(e.raw, raw, string(name))
		if err := e.check(errors.PhaseConvert, st, "get_named_property"); err != nil {
			return nil, err
		}
		if out[string(name)], err = e.toTree(val, depth+1); err != nil {
			return nil, err
		}
	}
	return out, nil
}
