package sessionsvc

import (
	"context"
	"testing"

	"github.com/sir_venger/chunkload/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	ready []string
}

func (s stubAdapter) Available(context.Context, []string) []string { return s.ready }

func TestRouterDedupesAndTrims(t *testing.T) {
	r := NewRouter(nil)
	r.Set([]string{" http://a/ ", "http://b", "", "http://a"})
	r.Add("http://b/", "http://c")

	assert.Equal(t, []string{"http://a", "http://b", "http://c"}, r.Storages())

	r.Set([]string{"http://z"})
	assert.Equal(t, []string{"http://z"}, r.Storages())
}

func TestRouterAllocateRoundRobin(t *testing.T) {
	r := NewRouter(nil)
	r.Set([]string{"a", "b", "c"})

	var got []string
	for i := 0; i < 4; i++ {
		nodes, err := r.Allocate(context.Background(), 1)
		require.NoError(t, err)
		got = append(got, nodes[0])
	}
	assert.Equal(t, []string{"a", "b", "c", "a"}, got)

	nodes, err := r.Allocate(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a", "b"}, nodes)
}

func TestRouterPrefersReadyStorages(t *testing.T) {
	r := NewRouter(stubAdapter{ready: []string{"c"}})
	r.Set([]string{"a", "b", "c"})

	nodes, err := r.Allocate(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "c"}, nodes)
}

func TestRouterFallsBackWhenNoneReady(t *testing.T) {
	r := NewRouter(stubAdapter{})
	r.Set([]string{"a", "b"})

	nodes, err := r.Allocate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, nodes)
}

func TestRouterErrors(t *testing.T) {
	r := NewRouter(nil)

	_, err := r.Allocate(context.Background(), 1)
	assert.ErrorIs(t, err, models.ErrNoStorage)

	r.Add("a")
	_, err = r.Allocate(context.Background(), 0)
	assert.Error(t, err)
}
