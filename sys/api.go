package sys

// Opaque tokens exchanged with the host. Their bit patterns are never
// interpreted on the native side. Zero is the null token for every kind.
type (
	Env                uintptr
	Value              uintptr
	Ref                uintptr
	Deferred           uintptr
	HandleScope        uintptr
	CallbackInfo       uintptr
	AsyncWork          uintptr
	ThreadsafeFunction uintptr
	CleanupHook        uintptr
)

// Callback is a native function invoked by the host on its logical thread.
// Returning 0 yields undefined.
type Callback func(env Env, info CallbackInfo) Value

// Finalize is invoked by the host at most once, when the value that owns
// data is reclaimed or the instance shuts down.
type Finalize func(env Env, data, hint any)

// AsyncExecute runs on a pool worker. It must not call back into the API.
type AsyncExecute func(env Env, data any)

// AsyncComplete runs on the host thread once execute has returned.
type AsyncComplete func(env Env, status Status, data any)

// ThreadsafeCallJS runs on the host thread for every queued item. fn is 0
// when the function was created without a host callable.
type ThreadsafeCallJS func(env Env, fn Value, context, data any)

// CleanupFunc is a process-wide cleanup hook.
type CleanupFunc func(arg any)

// CallMode selects the behaviour of CallThreadsafeFunction when the queue is full.
type CallMode int

const (
	CallNonBlocking CallMode = iota
	CallBlocking
)

// ReleaseMode selects how ReleaseThreadsafeFunction tears a queue down.
type ReleaseMode int

const (
	ReleaseNormal ReleaseMode = iota
	ReleaseAbort
)

// ExtendedErrorInfo describes the last failed boundary call on an Env.
type ExtendedErrorInfo struct {
	Message string
	Status  Status
}

// HostVersion identifies the host implementation.
type HostVersion struct {
	Release string
	Major   uint32
	Minor   uint32
	Patch   uint32
}

// PropertyDescriptor describes one class member for DefineClass.
// Exactly one of Method or Value is set.
type PropertyDescriptor struct {
	Data   any
	Method Callback
	Name   string
	Value  Value
	Static bool
}

// API is the status-code boundary a host exposes to native code. Every call
// that needs host access takes the Env of the current invocation. Only the
// threadsafe-function calls may be made from arbitrary goroutines.
type API interface {
	GetUndefined(env Env) (Value, Status)
	GetNull(env Env) (Value, Status)
	GetBoolean(env Env, v bool) (Value, Status)
	GetGlobal(env Env) (Value, Status)

	TypeOf(env Env, v Value) (ValueType, Status)
	StrictEquals(env Env, a, b Value) (bool, Status)

	CreateInt32(env Env, v int32) (Value, Status)
	CreateUint32(env Env, v uint32) (Value, Status)
	CreateInt64(env Env, v int64) (Value, Status)
	CreateDouble(env Env, v float64) (Value, Status)
	GetValueBool(env Env, v Value) (bool, Status)
	GetValueInt32(env Env, v Value) (int32, Status)
	GetValueUint32(env Env, v Value) (uint32, Status)
	GetValueInt64(env Env, v Value) (int64, Status)
	GetValueDouble(env Env, v Value) (float64, Status)

	CreateBigintInt64(env Env, v int64) (Value, Status)
	CreateBigintUint64(env Env, v uint64) (Value, Status)
	CreateBigintWords(env Env, signBit bool, words []uint64) (Value, Status)
	GetValueBigintInt64(env Env, v Value) (int64, bool, Status)
	GetValueBigintUint64(env Env, v Value) (uint64, bool, Status)
	GetValueBigintWords(env Env, v Value) (bool, []uint64, Status)

	CreateStringUTF8(env Env, s []byte) (Value, Status)
	CreateStringUTF16(env Env, s []uint16) (Value, Status)
	CreateStringLatin1(env Env, s []byte) (Value, Status)
	GetValueStringUTF8(env Env, v Value) ([]byte, Status)
	GetValueStringUTF16(env Env, v Value) ([]uint16, Status)
	GetValueStringLatin1(env Env, v Value) ([]byte, Status)
	CreateSymbol(env Env, description Value) (Value, Status)

	CreateObject(env Env) (Value, Status)
	CreateArray(env Env) (Value, Status)
	CreateArrayWithLength(env Env, length uint32) (Value, Status)
	IsArray(env Env, v Value) (bool, Status)
	GetArrayLength(env Env, v Value) (uint32, Status)
	SetNamedProperty(env Env, obj Value, name string, v Value) Status
	GetNamedProperty(env Env, obj Value, name string) (Value, Status)
	HasNamedProperty(env Env, obj Value, name string) (bool, Status)
	DeleteNamedProperty(env Env, obj Value, name string) (bool, Status)
	GetPropertyNames(env Env, obj Value) (Value, Status)
	SetElement(env Env, obj Value, index uint32, v Value) Status
	GetElement(env Env, obj Value, index uint32) (Value, Status)

	CreateDate(env Env, ms float64) (Value, Status)
	IsDate(env Env, v Value) (bool, Status)
	GetDateValue(env Env, v Value) (float64, Status)

	CreateBuffer(env Env, length int) (Value, []byte, Status)
	CreateBufferCopy(env Env, data []byte) (Value, []byte, Status)
	CreateExternalBuffer(env Env, data []byte, fin Finalize, hint any) (Value, Status)
	GetBufferInfo(env Env, v Value) ([]byte, Status)
	IsBuffer(env Env, v Value) (bool, Status)
	CreateArrayBuffer(env Env, length int) (Value, []byte, Status)
	CreateExternalArrayBuffer(env Env, data []byte, fin Finalize, hint any) (Value, Status)
	GetArrayBufferInfo(env Env, v Value) ([]byte, Status)
	IsArrayBuffer(env Env, v Value) (bool, Status)
	AdjustExternalMemory(env Env, delta int64) (int64, Status)

	CreateFunction(env Env, name string, cb Callback, data any) (Value, Status)
	GetCallbackInfo(env Env, info CallbackInfo) (this Value, args []Value, data any, status Status)
	CallFunction(env Env, recv, fn Value, args []Value) (Value, Status)
	NewInstance(env Env, ctor Value, args []Value) (Value, Status)
	DefineClass(env Env, name string, ctor Callback, data any, props []PropertyDescriptor) (Value, Status)

	CreateError(env Env, code, msg Value) (Value, Status)
	CreateTypeError(env Env, code, msg Value) (Value, Status)
	CreateRangeError(env Env, code, msg Value) (Value, Status)
	IsError(env Env, v Value) (bool, Status)
	Throw(env Env, v Value) Status
	ThrowError(env Env, code, msg string) Status
	ThrowTypeError(env Env, code, msg string) Status
	ThrowRangeError(env Env, code, msg string) Status
	IsExceptionPending(env Env) (bool, Status)
	GetAndClearLastException(env Env) (Value, Status)
	GetLastErrorInfo(env Env) (ExtendedErrorInfo, Status)
	FatalError(location, message string)
	FatalException(env Env, err Value) Status

	Wrap(env Env, obj Value, data any, fin Finalize, hint any) Status
	Unwrap(env Env, obj Value) (any, Status)
	RemoveWrap(env Env, obj Value) (any, Status)
	CreateExternal(env Env, data any, fin Finalize, hint any) (Value, Status)
	GetValueExternal(env Env, v Value) (any, Status)

	CreateReference(env Env, v Value, initialCount uint32) (Ref, Status)
	DeleteReference(env Env, ref Ref) Status
	ReferenceRef(env Env, ref Ref) (uint32, Status)
	ReferenceUnref(env Env, ref Ref) (uint32, Status)
	GetReferenceValue(env Env, ref Ref) (Value, Status)

	OpenHandleScope(env Env) (HandleScope, Status)
	CloseHandleScope(env Env, scope HandleScope) Status

	CreatePromise(env Env) (Deferred, Value, Status)
	ResolveDeferred(env Env, d Deferred, v Value) Status
	RejectDeferred(env Env, d Deferred, v Value) Status
	IsPromise(env Env, v Value) (bool, Status)

	CreateAsyncWork(env Env, resourceName string, execute AsyncExecute, complete AsyncComplete, data any) (AsyncWork, Status)
	QueueAsyncWork(env Env, work AsyncWork) Status
	DeleteAsyncWork(env Env, work AsyncWork) Status

	CreateThreadsafeFunction(env Env, fn Value, resourceName string, maxQueueSize, initialThreadCount int,
		finalizeData any, finalize Finalize, context any, callJS ThreadsafeCallJS) (ThreadsafeFunction, Status)
	CallThreadsafeFunction(tsfn ThreadsafeFunction, data any, mode CallMode) Status
	AcquireThreadsafeFunction(tsfn ThreadsafeFunction) Status
	ReleaseThreadsafeFunction(tsfn ThreadsafeFunction, mode ReleaseMode) Status

	AddEnvCleanupHook(env Env, fn CleanupFunc, arg any) (CleanupHook, Status)
	RemoveEnvCleanupHook(env Env, hook CleanupHook) Status
	SetInstanceData(env Env, data any, fin Finalize, hint any) Status
	GetInstanceData(env Env) (any, Status)

	GetVersion(env Env) (uint32, Status)
	GetHostVersion(env Env) (HostVersion, Status)
}
