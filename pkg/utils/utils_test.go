package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCtxFireLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		CtxFireLoop(ctx, time.Hour, func() {
			atomic.AddInt32(&calls, 1)
			cancel()
		})
	}()
	<-done
	// fired once before the first tick
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCtxLoopStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	CtxLoop(ctx, time.Hour, func() { t.Fatal("should not fire") })
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &StatusWriter{ResponseWriter: rec}
	sw.Write([]byte("hello"))
	require.Equal(t, http.StatusOK, sw.Status)
	require.Equal(t, 5, sw.Length)

	rec = httptest.NewRecorder()
	sw = &StatusWriter{ResponseWriter: rec}
	sw.WriteHeader(http.StatusTeapot)
	sw.Write([]byte("x"))
	require.Equal(t, http.StatusTeapot, sw.Status)
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestEnsureDirForFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "tableview-utils")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "a", "b", "out.csv")
	require.NoError(t, EnsureDirForFile(file))
	st, err := os.Stat(filepath.Dir(file))
	require.NoError(t, err)
	require.True(t, st.IsDir())

	// existing dirs are fine
	require.NoError(t, EnsureDirForFile(file))
}
