package filetransfer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-opcua/ua"
)

func TestHandleTable(t *testing.T) {
	sessionA := ua.NewNumericNodeID(0, 1)
	sessionB := ua.NewNumericNodeID(0, 2)

	t.Run("allocate and lookup", func(t *testing.T) {
		require := require.New(t)
		table := NewHandleTable(nil)

		h1 := table.Allocate(OpenModeRead, sessionA, nil)
		h2 := table.Allocate(OpenModeWrite, sessionA, nil)
		require.Equal(uint32(42), h1)
		require.Equal(uint32(43), h2)
		require.Equal(2, table.Len())

		fa, ok := table.Lookup(h1, sessionA)
		require.True(ok)
		require.Equal(h1, fa.Handle())
		require.Equal(OpenModeRead, fa.Mode())
		require.Equal(sessionA, fa.SessionID())
		require.Zero(fa.Position())
		require.Zero(fa.Size())

		_, ok = table.Lookup(h1, sessionB)
		require.False(ok)

		_, ok = table.Lookup(1000, sessionA)
		require.False(ok)
	})

	t.Run("release", func(t *testing.T) {
		require := require.New(t)
		table := NewHandleTable(nil)

		h := table.Allocate(OpenModeRead, sessionA, nil)
		require.True(table.Release(h))
		require.False(table.Release(h))
		require.Zero(table.Len())

		// handles are not reused
		require.Equal(h+1, table.Allocate(OpenModeRead, sessionA, nil))
	})

	t.Run("release session", func(t *testing.T) {
		require := require.New(t)
		table := NewHandleTable(nil)

		table.Allocate(OpenModeRead, sessionA, nil)
		hb := table.Allocate(OpenModeRead, sessionB, nil)
		table.Allocate(OpenModeWrite, sessionA, nil)

		released := table.ReleaseSession(sessionA)
		require.Len(released, 2)
		for _, fa := range released {
			require.Equal(sessionA, fa.SessionID())
		}
		require.Equal(1, table.Len())

		_, ok := table.Lookup(hb, sessionB)
		require.True(ok)
	})

	t.Run("concurrent allocate", func(t *testing.T) {
		require := require.New(t)
		table := NewHandleTable(nil)

		const n = 100
		handles := make(chan uint32, n)

		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				handles <- table.Allocate(OpenModeRead, sessionA, nil)
			}()
		}
		wg.Wait()
		close(handles)

		seen := make(map[uint32]struct{}, n)
		for h := range handles {
			require.Greater(h, handleBase)
			seen[h] = struct{}{}
		}
		require.Len(seen, n)
		require.Equal(n, table.Len())
	})
}
