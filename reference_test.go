package napi_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	napi "github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

func TestReference_StrongKeepsTarget(t *testing.T) {
	h := newHost(t)

	var ref *napi.Ref
	run(t, h, func(env napi.Env) {
		obj, _ := env.CreateObject()
		name, _ := env.CreateString("kept")
		obj.SetNamedProperty("name", name)
		var err error
		ref, err = env.CreateReference(obj)
		assert.NoError(t, err)
		assert.Equal(t, uint32(1), ref.Count())
	})
	require.NotNil(t, ref)

	require.NoError(t, h.Collect(context.Background()))

	run(t, h, func(env napi.Env) {
		obj, err := napi.GetReferenceValue[napi.JsObject](env, ref)
		assert.NoError(t, err)
		assert.Equal(t, "kept", jsString(t, property(t, obj, "name")))

		_, err = napi.GetReferenceValue[napi.JsString](env, ref)
		assertStatus(t, err, sys.StatusStringExpected)

		n, err := ref.Ref(env)
		assert.NoError(t, err)
		assert.Equal(t, uint32(2), n)
		n, _ = ref.Unref(env)
		assert.Equal(t, uint32(1), n)
		n, err = ref.Unref(env)
		assert.NoError(t, err)
		assert.Zero(t, n)

		_, err = napi.GetReferenceValue[napi.JsObject](env, ref)
		assertKind(t, err, errors.KindInvalidArg)
	})
	assert.Zero(t, h.LiveReferences(), "reaching zero deletes the reference")
}

func TestReference_WeakTargetCollected(t *testing.T) {
	h := newHost(t)

	var ref *napi.Ref
	run(t, h, func(env napi.Env) {
		obj, _ := env.CreateObject()
		ref, _ = env.CreateWeakReference(obj)
		_, err := napi.GetReferenceValue[napi.JsObject](env, ref)
		assert.NoError(t, err, "target alive while its scope is open")
	})
	require.NotNil(t, ref)

	require.NoError(t, h.Collect(context.Background()))

	run(t, h, func(env napi.Env) {
		_, err := napi.GetReferenceValue[napi.JsObject](env, ref)
		assertKind(t, err, errors.KindInvalidArg)
		assert.NoError(t, ref.Delete(env))
		assertKind(t, ref.Delete(env), errors.KindInvalidArg)
	})
}

func TestReference_UncheckedDefersMismatch(t *testing.T) {
	h := newHost(t)

	run(t, h, func(env napi.Env) {
		s, _ := env.CreateString("not a number")
		ref, _ := env.CreateReference(s)

		n, err := napi.GetReferenceValueUnchecked[napi.JsNumber](env, ref)
		assert.NoError(t, err, "resolution does not check the type")

		_, err = n.Double()
		assertKind(t, err, errors.KindInvalidArg)
		assertStatus(t, err, sys.StatusNumberExpected)

		assert.NoError(t, ref.Delete(env))
	})
}
