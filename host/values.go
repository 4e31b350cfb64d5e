package host

import (
	"math/big"
	"slices"
	"strconv"

	"github.com/wippyai/napi-go/sys"
)

type kind uint8

const (
	kindUndefined kind = iota
	kindNull
	kindBoolean
	kindNumber
	kindString
	kindSymbol
	kindObject
	kindArray
	kindFunction
	kindExternal
	kindBigint
	kindDate
	kindBuffer
	kindArrayBuffer
	kindPromise
	kindError
)

func (k kind) valueType() sys.ValueType {
	switch k {
	case kindUndefined:
		return sys.ValueUndefined
	case kindNull:
		return sys.ValueNull
	case kindBoolean:
		return sys.ValueBoolean
	case kindNumber:
		return sys.ValueNumber
	case kindString:
		return sys.ValueString
	case kindSymbol:
		return sys.ValueSymbol
	case kindFunction:
		return sys.ValueFunction
	case kindExternal:
		return sys.ValueExternal
	case kindBigint:
		return sys.ValueBigint
	default:
		return sys.ValueObject
	}
}

// isObject reports whether values of this kind carry properties.
func (k kind) isObject() bool {
	switch k {
	case kindObject, kindArray, kindFunction, kindDate, kindBuffer,
		kindArrayBuffer, kindPromise, kindError:
		return true
	}
	return false
}

// object is a host value. Fields not relevant to the kind stay zero.
// References to other values are handles; the collector traces them.
type object struct {
	big     *big.Int
	fn      *function
	fin     *finalizer
	wrap    *wrapSlot
	promise *promise
	data    any
	props   map[string]sys.Value
	keys    []string
	elems   []sys.Value
	str     []uint16
	buf     []byte
	num     float64
	proto   sys.Value
	heapOff uint32
	mark    uint32
	kind    kind
	flag    bool
	hasDesc bool

	permanent bool
}

type finalizer struct {
	fn   sys.Finalize
	data any
	hint any
}

type wrapSlot struct {
	data any
	fin  *finalizer
}

func (o *object) setProp(name string, v sys.Value) {
	if o.props == nil {
		o.props = make(map[string]sys.Value)
	}
	if _, ok := o.props[name]; !ok {
		o.keys = append(o.keys, name)
	}
	o.props[name] = v
}

func (o *object) deleteProp(name string) bool {
	if _, ok := o.props[name]; !ok {
		return false
	}
	delete(o.props, name)
	if i := slices.Index(o.keys, name); i >= 0 {
		o.keys = slices.Delete(o.keys, i, i+1)
	}
	return true
}

// lookup walks the prototype chain.
func (h *Host) lookup(o *object, name string) (sys.Value, bool) {
	for depth := 0; o != nil && depth < 256; depth++ {
		if v, ok := o.props[name]; ok {
			return v, true
		}
		if o.proto == 0 {
			return 0, false
		}
		o, _ = h.get(o.proto)
	}
	return 0, false
}

func (h *Host) objectArg(v sys.Value) (*object, sys.Status) {
	o, ok := h.get(v)
	if !ok {
		return nil, sys.StatusInvalidArg
	}
	if !o.kind.isObject() {
		return nil, sys.StatusObjectExpected
	}
	return o, sys.StatusOK
}

func (h *Host) GetUndefined(env sys.Env) (sys.Value, sys.Status) {
	if _, st := h.enter(env); st != sys.StatusOK {
		return 0, st
	}
	return h.undefined, sys.StatusOK
}

func (h *Host) GetNull(env sys.Env) (sys.Value, sys.Status) {
	if _, st := h.enter(env); st != sys.StatusOK {
		return 0, st
	}
	return h.null, sys.StatusOK
}

func (h *Host) GetBoolean(env sys.Env, b bool) (sys.Value, sys.Status) {
	if _, st := h.enter(env); st != sys.StatusOK {
		return 0, st
	}
	return h.boolValue(b), sys.StatusOK
}

func (h *Host) GetGlobal(env sys.Env) (sys.Value, sys.Status) {
	if _, st := h.enter(env); st != sys.StatusOK {
		return 0, st
	}
	return h.global, sys.StatusOK
}

func (h *Host) TypeOf(env sys.Env, v sys.Value) (sys.ValueType, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return sys.ValueUnknown, st
	}
	o, ok := h.get(v)
	if !ok {
		return sys.ValueUnknown, e.status(sys.StatusInvalidArg)
	}
	return o.kind.valueType(), sys.StatusOK
}

func (h *Host) StrictEquals(env sys.Env, a, b sys.Value) (bool, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return false, st
	}
	oa, ok1 := h.get(a)
	ob, ok2 := h.get(b)
	if !ok1 || !ok2 {
		return false, e.status(sys.StatusInvalidArg)
	}
	if oa.kind != ob.kind {
		return false, sys.StatusOK
	}
	switch oa.kind {
	case kindNumber:
		return oa.num == ob.num, sys.StatusOK
	case kindString:
		return slices.Equal(oa.str, ob.str), sys.StatusOK
	case kindBigint:
		return oa.big.Cmp(ob.big) == 0, sys.StatusOK
	case kindBoolean:
		return oa.flag == ob.flag, sys.StatusOK
	case kindUndefined, kindNull:
		return true, sys.StatusOK
	default:
		return a == b, sys.StatusOK
	}
}

func (h *Host) CreateInt32(env sys.Env, v int32) (sys.Value, sys.Status) {
	return h.CreateDouble(env, float64(v))
}

func (h *Host) CreateUint32(env sys.Env, v uint32) (sys.Value, sys.Status) {
	return h.CreateDouble(env, float64(v))
}

func (h *Host) CreateInt64(env sys.Env, v int64) (sys.Value, sys.Status) {
	return h.CreateDouble(env, float64(v))
}

func (h *Host) CreateDouble(env sys.Env, v float64) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	val, st := h.alloc(e, &object{kind: kindNumber, num: v})
	return val, e.status(st)
}

func (h *Host) number(env sys.Env, v sys.Value) (float64, *envState, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, nil, st
	}
	o, ok := h.get(v)
	if !ok {
		return 0, e, e.status(sys.StatusInvalidArg)
	}
	if o.kind != kindNumber {
		return 0, e, e.status(sys.StatusNumberExpected)
	}
	return o.num, e, sys.StatusOK
}

func (h *Host) GetValueDouble(env sys.Env, v sys.Value) (float64, sys.Status) {
	f, _, st := h.number(env, v)
	return f, st
}

func (h *Host) GetValueInt32(env sys.Env, v sys.Value) (int32, sys.Status) {
	f, _, st := h.number(env, v)
	if st != sys.StatusOK {
		return 0, st
	}
	return toInt32(f), sys.StatusOK
}

func (h *Host) GetValueUint32(env sys.Env, v sys.Value) (uint32, sys.Status) {
	f, _, st := h.number(env, v)
	if st != sys.StatusOK {
		return 0, st
	}
	return toUint32(f), sys.StatusOK
}

func (h *Host) GetValueInt64(env sys.Env, v sys.Value) (int64, sys.Status) {
	f, _, st := h.number(env, v)
	if st != sys.StatusOK {
		return 0, st
	}
	return toInt64(f), sys.StatusOK
}

func (h *Host) GetValueBool(env sys.Env, v sys.Value) (bool, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return false, st
	}
	o, ok := h.get(v)
	if !ok {
		return false, e.status(sys.StatusInvalidArg)
	}
	if o.kind != kindBoolean {
		return false, e.status(sys.StatusBooleanExpected)
	}
	return o.flag, sys.StatusOK
}

func (h *Host) createBigint(env sys.Env, x *big.Int) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if st := h.require(e, VersionBigint); st != sys.StatusOK {
		return 0, st
	}
	val, st := h.alloc(e, &object{kind: kindBigint, big: x})
	return val, e.status(st)
}

func (h *Host) CreateBigintInt64(env sys.Env, v int64) (sys.Value, sys.Status) {
	return h.createBigint(env, big.NewInt(v))
}

func (h *Host) CreateBigintUint64(env sys.Env, v uint64) (sys.Value, sys.Status) {
	return h.createBigint(env, new(big.Int).SetUint64(v))
}

func (h *Host) CreateBigintWords(env sys.Env, signBit bool, words []uint64) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if st := h.require(e, VersionBigint); st != sys.StatusOK {
		return 0, st
	}
	if len(words) > maxBigintWords {
		return 0, e.status(sys.StatusInvalidArg)
	}
	val, st := h.alloc(e, &object{kind: kindBigint, big: bigintFromWords(signBit, words)})
	return val, e.status(st)
}

func (h *Host) bigint(env sys.Env, v sys.Value) (*big.Int, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return nil, st
	}
	if st := h.require(e, VersionBigint); st != sys.StatusOK {
		return nil, st
	}
	o, ok := h.get(v)
	if !ok {
		return nil, e.status(sys.StatusInvalidArg)
	}
	if o.kind != kindBigint {
		return nil, e.status(sys.StatusBigintExpected)
	}
	return o.big, sys.StatusOK
}

func (h *Host) GetValueBigintInt64(env sys.Env, v sys.Value) (int64, bool, sys.Status) {
	x, st := h.bigint(env, v)
	if st != sys.StatusOK {
		return 0, false, st
	}
	return int64(low64(x)), x.IsInt64(), sys.StatusOK
}

func (h *Host) GetValueBigintUint64(env sys.Env, v sys.Value) (uint64, bool, sys.Status) {
	x, st := h.bigint(env, v)
	if st != sys.StatusOK {
		return 0, false, st
	}
	return low64(x), x.IsUint64(), sys.StatusOK
}

func (h *Host) GetValueBigintWords(env sys.Env, v sys.Value) (bool, []uint64, sys.Status) {
	x, st := h.bigint(env, v)
	if st != sys.StatusOK {
		return false, nil, st
	}
	sign, words := bigintToWords(x)
	return sign, words, sys.StatusOK
}

func (h *Host) createString(env sys.Env, units []uint16) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	val, st := h.alloc(e, &object{kind: kindString, str: units})
	return val, e.status(st)
}

func (h *Host) CreateStringUTF8(env sys.Env, s []byte) (sys.Value, sys.Status) {
	return h.createString(env, utf8ToUnits(s))
}

func (h *Host) CreateStringUTF16(env sys.Env, s []uint16) (sys.Value, sys.Status) {
	return h.createString(env, slices.Clone(s))
}

func (h *Host) CreateStringLatin1(env sys.Env, s []byte) (sys.Value, sys.Status) {
	return h.createString(env, latin1ToUnits(s))
}

func (h *Host) stringUnits(env sys.Env, v sys.Value) ([]uint16, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return nil, st
	}
	o, ok := h.get(v)
	if !ok {
		return nil, e.status(sys.StatusInvalidArg)
	}
	if o.kind != kindString {
		return nil, e.status(sys.StatusStringExpected)
	}
	return o.str, sys.StatusOK
}

func (h *Host) GetValueStringUTF8(env sys.Env, v sys.Value) ([]byte, sys.Status) {
	units, st := h.stringUnits(env, v)
	if st != sys.StatusOK {
		return nil, st
	}
	return unitsToUTF8(units), sys.StatusOK
}

func (h *Host) GetValueStringUTF16(env sys.Env, v sys.Value) ([]uint16, sys.Status) {
	units, st := h.stringUnits(env, v)
	if st != sys.StatusOK {
		return nil, st
	}
	return slices.Clone(units), sys.StatusOK
}

func (h *Host) GetValueStringLatin1(env sys.Env, v sys.Value) ([]byte, sys.Status) {
	units, st := h.stringUnits(env, v)
	if st != sys.StatusOK {
		return nil, st
	}
	return unitsToLatin1(units), sys.StatusOK
}

func (h *Host) CreateSymbol(env sys.Env, description sys.Value) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	sym := &object{kind: kindSymbol}
	if description != 0 {
		d, ok := h.get(description)
		if !ok {
			return 0, e.status(sys.StatusInvalidArg)
		}
		if d.kind != kindString {
			return 0, e.status(sys.StatusStringExpected)
		}
		sym.str = d.str
		sym.hasDesc = true
	}
	val, st := h.alloc(e, sym)
	return val, e.status(st)
}

func (h *Host) CreateObject(env sys.Env) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	val, st := h.alloc(e, &object{kind: kindObject})
	return val, e.status(st)
}

func (h *Host) CreateArray(env sys.Env) (sys.Value, sys.Status) {
	return h.CreateArrayWithLength(env, 0)
}

func (h *Host) CreateArrayWithLength(env sys.Env, length uint32) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	elems := make([]sys.Value, length)
	for i := range elems {
		elems[i] = h.undefined
	}
	val, st := h.alloc(e, &object{kind: kindArray, elems: elems})
	return val, e.status(st)
}

func (h *Host) IsArray(env sys.Env, v sys.Value) (bool, sys.Status) {
	return h.isKind(env, v, kindArray)
}

func (h *Host) isKind(env sys.Env, v sys.Value, k kind) (bool, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return false, st
	}
	o, ok := h.get(v)
	if !ok {
		return false, e.status(sys.StatusInvalidArg)
	}
	return o.kind == k, sys.StatusOK
}

func (h *Host) GetArrayLength(env sys.Env, v sys.Value) (uint32, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	o, ok := h.get(v)
	if !ok {
		return 0, e.status(sys.StatusInvalidArg)
	}
	if o.kind != kindArray {
		return 0, e.status(sys.StatusArrayExpected)
	}
	return uint32(len(o.elems)), sys.StatusOK
}

func (h *Host) SetNamedProperty(env sys.Env, obj sys.Value, name string, v sys.Value) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return e.status(st)
	}
	o, st := h.objectArg(obj)
	if st != sys.StatusOK {
		return e.status(st)
	}
	if _, ok := h.get(v); !ok {
		return e.status(sys.StatusInvalidArg)
	}
	o.setProp(name, v)
	return sys.StatusOK
}

func (h *Host) GetNamedProperty(env sys.Env, obj sys.Value, name string) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return 0, e.status(st)
	}
	o, st := h.objectArg(obj)
	if st != sys.StatusOK {
		return 0, e.status(st)
	}
	if o.kind == kindArray && name == "length" {
		return h.alloc(e, &object{kind: kindNumber, num: float64(len(o.elems))})
	}
	if v, ok := h.lookup(o, name); ok {
		h.track(v)
		return v, sys.StatusOK
	}
	return h.undefined, sys.StatusOK
}

func (h *Host) HasNamedProperty(env sys.Env, obj sys.Value, name string) (bool, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return false, st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return false, e.status(st)
	}
	o, st := h.objectArg(obj)
	if st != sys.StatusOK {
		return false, e.status(st)
	}
	_, ok := h.lookup(o, name)
	return ok, sys.StatusOK
}

func (h *Host) DeleteNamedProperty(env sys.Env, obj sys.Value, name string) (bool, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return false, st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return false, e.status(st)
	}
	o, st := h.objectArg(obj)
	if st != sys.StatusOK {
		return false, e.status(st)
	}
	o.deleteProp(name)
	return true, sys.StatusOK
}

func (h *Host) GetPropertyNames(env sys.Env, obj sys.Value) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return 0, e.status(st)
	}
	o, st := h.objectArg(obj)
	if st != sys.StatusOK {
		return 0, e.status(st)
	}

	names := make([]string, 0, len(o.elems)+len(o.keys))
	for i := range o.elems {
		names = append(names, strconv.Itoa(i))
	}
	names = append(names, o.keys...)

	elems := make([]sys.Value, 0, len(names))
	for _, n := range names {
		s, st := h.alloc(e, &object{kind: kindString, str: utf8ToUnits([]byte(n))})
		if st != sys.StatusOK {
			return 0, e.status(st)
		}
		elems = append(elems, s)
	}
	val, st := h.alloc(e, &object{kind: kindArray, elems: elems})
	return val, e.status(st)
}

func (h *Host) SetElement(env sys.Env, obj sys.Value, index uint32, v sys.Value) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return e.status(st)
	}
	o, st := h.objectArg(obj)
	if st != sys.StatusOK {
		return e.status(st)
	}
	if _, ok := h.get(v); !ok {
		return e.status(sys.StatusInvalidArg)
	}
	if o.kind != kindArray {
		o.setProp(strconv.FormatUint(uint64(index), 10), v)
		return sys.StatusOK
	}
	if int(index) >= len(o.elems) {
		if index >= maxArrayLength {
			return e.status(sys.StatusInvalidArg)
		}
		for len(o.elems) <= int(index) {
			o.elems = append(o.elems, h.undefined)
		}
	}
	o.elems[index] = v
	return sys.StatusOK
}

func (h *Host) GetElement(env sys.Env, obj sys.Value, index uint32) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return 0, e.status(st)
	}
	o, st := h.objectArg(obj)
	if st != sys.StatusOK {
		return 0, e.status(st)
	}
	if o.kind == kindArray {
		if int(index) < len(o.elems) {
			v := o.elems[index]
			h.track(v)
			return v, sys.StatusOK
		}
		return h.undefined, sys.StatusOK
	}
	if v, ok := h.lookup(o, strconv.FormatUint(uint64(index), 10)); ok {
		h.track(v)
		return v, sys.StatusOK
	}
	return h.undefined, sys.StatusOK
}

func (h *Host) CreateDate(env sys.Env, ms float64) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if st := h.require(e, VersionDates); st != sys.StatusOK {
		return 0, st
	}
	val, st := h.alloc(e, &object{kind: kindDate, num: timeClip(ms)})
	return val, e.status(st)
}

func (h *Host) IsDate(env sys.Env, v sys.Value) (bool, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return false, st
	}
	if st := h.require(e, VersionDates); st != sys.StatusOK {
		return false, st
	}
	return h.isKind(env, v, kindDate)
}

func (h *Host) GetDateValue(env sys.Env, v sys.Value) (float64, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if st := h.require(e, VersionDates); st != sys.StatusOK {
		return 0, st
	}
	o, ok := h.get(v)
	if !ok {
		return 0, e.status(sys.StatusInvalidArg)
	}
	if o.kind != kindDate {
		return 0, e.status(sys.StatusDateExpected)
	}
	return o.num, sys.StatusOK
}
