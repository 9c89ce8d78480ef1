package addrspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-opcua/logger"
	"github.com/arloliu/go-opcua/ua"
)

func newTestSpace(t *testing.T) *AddressSpace {
	t.Helper()
	as, err := New()
	require.NoError(t, err)

	return as
}

func TestAddressSpace_AddObject(t *testing.T) {
	require := require.New(t)
	as := newTestSpace(t)

	id := ua.NewNumericNodeID(1, 1000)
	obj, err := as.AddObject(id, "MyFile")
	require.NoError(err)
	require.Equal(id, obj.NodeID())
	require.Equal("MyFile", obj.BrowseName())

	_, err = as.AddObject(id, "Other")
	require.ErrorIs(err, ErrNodeExists)

	found, ok := as.FindObject(id)
	require.True(ok)
	require.Same(obj, found)

	_, ok = as.FindObject(ua.NewNumericNodeID(1, 1001))
	require.False(ok)
}

func TestAddressSpace_Call(t *testing.T) {
	ctx := context.Background()
	id := ua.NewStringNodeID(1, "obj")

	t.Run("dispatch", func(t *testing.T) {
		require := require.New(t)
		as := newTestSpace(t)
		obj, err := as.AddObject(id, "obj")
		require.NoError(err)

		require.False(obj.IsBound("Echo"))
		require.NoError(obj.BindMethod("Echo", func(_ context.Context, sc *SessionContext, args []ua.Variant) CallResult {
			require.Equal(id, sc.ObjectID)
			return NewCallResult(ua.Good, args...)
		}))
		require.True(obj.IsBound("Echo"))

		sc := &SessionContext{SessionID: ua.NewNumericNodeID(0, 1)}
		res := as.Call(ctx, sc, id, "Echo", []ua.Variant{ua.NewUInt32Variant(7)})
		require.Equal(ua.Good, res.Status)
		require.Len(res.Outputs, 1)
		val, ok := res.Outputs[0].UInt32()
		require.True(ok)
		require.Equal(uint32(7), val)
		require.Equal(id, sc.ObjectID)
	})

	t.Run("errors", func(t *testing.T) {
		require := require.New(t)
		as := newTestSpace(t)
		obj, err := as.AddObject(id, "obj")
		require.NoError(err)
		require.ErrorIs(obj.BindMethod("Nil", nil), ErrMethodNil)

		sc := &SessionContext{SessionID: ua.NewNumericNodeID(0, 1)}
		require.Equal(ua.BadNodeIDUnknown, as.Call(ctx, sc, ua.NewStringNodeID(1, "missing"), "Echo", nil).Status)
		require.Equal(ua.BadMethodInvalid, as.Call(ctx, sc, id, "Echo", nil).Status)
		require.Equal(ua.BadSessionClosed, as.Call(ctx, nil, id, "Echo", nil).Status)
	})

	t.Run("panic", func(t *testing.T) {
		require := require.New(t)

		l := logger.NewMockLogger()
		l.On("Error", "panic in method", mock.Anything).Once()

		as, err := New(WithLogger(l))
		require.NoError(err)
		obj, err := as.AddObject(id, "obj")
		require.NoError(err)
		require.NoError(obj.BindMethod("Boom", func(context.Context, *SessionContext, []ua.Variant) CallResult {
			panic("boom")
		}))

		res := as.Call(ctx, &SessionContext{}, id, "Boom", nil)
		require.Equal(ua.BadInternalError, res.Status)
		l.AssertExpectations(t)
	})
}

func TestAddressSpace_CloseSession(t *testing.T) {
	require := require.New(t)
	as := newTestSpace(t)

	var order []int
	session := ua.NewNumericNodeID(0, 99)
	as.OnSessionClosed(
		func(id ua.NodeID) {
			require.Equal(session, id)
			order = append(order, 1)
		},
		nil,
		func(ua.NodeID) { panic("bad handler") },
	)
	as.OnSessionClosed(func(ua.NodeID) { order = append(order, 3) })

	as.CloseSession(session)
	require.Equal([]int{1, 3}, order)
}
