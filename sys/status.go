package sys

import "strconv"

// Status is the result code of every boundary call.
type Status int32

const (
	StatusOK Status = iota
	StatusInvalidArg
	StatusObjectExpected
	StatusStringExpected
	StatusNameExpected
	StatusFunctionExpected
	StatusNumberExpected
	StatusBooleanExpected
	StatusArrayExpected
	StatusGenericFailure
	StatusPendingException
	StatusCancelled
	StatusEscapeCalledTwice
	StatusHandleScopeMismatch
	StatusCallbackScopeMismatch
	StatusQueueFull
	StatusClosing
	StatusBigintExpected
	StatusDateExpected
	StatusArrayBufferExpected
	StatusDetachableArrayBufferExpected
	StatusWouldDeadlock
)

var statusNames = [...]string{
	StatusOK:                            "Ok",
	StatusInvalidArg:                    "InvalidArg",
	StatusObjectExpected:                "ObjectExpected",
	StatusStringExpected:                "StringExpected",
	StatusNameExpected:                  "NameExpected",
	StatusFunctionExpected:              "FunctionExpected",
	StatusNumberExpected:                "NumberExpected",
	StatusBooleanExpected:               "BooleanExpected",
	StatusArrayExpected:                 "ArrayExpected",
	StatusGenericFailure:                "GenericFailure",
	StatusPendingException:              "PendingException",
	StatusCancelled:                     "Cancelled",
	StatusEscapeCalledTwice:             "EscapeCalledTwice",
	StatusHandleScopeMismatch:           "HandleScopeMismatch",
	StatusCallbackScopeMismatch:         "CallbackScopeMismatch",
	StatusQueueFull:                     "QueueFull",
	StatusClosing:                       "Closing",
	StatusBigintExpected:                "BigintExpected",
	StatusDateExpected:                  "DateExpected",
	StatusArrayBufferExpected:           "ArrayBufferExpected",
	StatusDetachableArrayBufferExpected: "DetachableArrayBufferExpected",
	StatusWouldDeadlock:                 "WouldDeadlock",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// Expected reports whether s is one of the "<type> expected" statuses
// returned when a value of the wrong runtime type is passed.
func (s Status) Expected() bool {
	switch s {
	case StatusObjectExpected, StatusStringExpected, StatusNameExpected,
		StatusFunctionExpected, StatusNumberExpected, StatusBooleanExpected,
		StatusArrayExpected, StatusBigintExpected, StatusDateExpected,
		StatusArrayBufferExpected, StatusDetachableArrayBufferExpected:
		return true
	}
	return false
}

// ValueType is the runtime type of a host value as reported by TypeOf.
type ValueType int32

const (
	ValueUndefined ValueType = iota
	ValueNull
	ValueBoolean
	ValueNumber
	ValueString
	ValueSymbol
	ValueObject
	ValueFunction
	ValueExternal
	ValueBigint

	// ValueUnknown is never returned by a host. It marks "any type" in
	// typed wrappers that skip the runtime check.
	ValueUnknown ValueType = -1
)

var valueTypeNames = [...]string{
	ValueUndefined: "undefined",
	ValueNull:      "null",
	ValueBoolean:   "boolean",
	ValueNumber:    "number",
	ValueString:    "string",
	ValueSymbol:    "symbol",
	ValueObject:    "object",
	ValueFunction:  "function",
	ValueExternal:  "external",
	ValueBigint:    "bigint",
}

func (t ValueType) String() string {
	if t >= 0 && int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "unknown"
}
