package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sir_venger/chunkload/internal/app/resthttp"
	"github.com/sir_venger/chunkload/internal/app/storagehttp"
	"github.com/sir_venger/chunkload/internal/config"
	"github.com/sir_venger/chunkload/internal/usecase/uploadsvc"
	"github.com/sir_venger/chunkload/pkg/backendclient"
	"github.com/sir_venger/chunkload/pkg/storageclient"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "integration-secret"
	testToken  = "integration-token"
)

// stack собирает REST-бэкенд поверх нескольких узлов хранения на httptest.
type stack struct {
	rest     *httptest.Server
	server   *resthttp.Server
	nodes    []*httptest.Server
	nodeDirs []string
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStack(t *testing.T, nodes int) *stack {
	t.Helper()
	st := &stack{}

	var urls []string
	for i := 0; i < nodes; i++ {
		dir := t.TempDir()
		node := httptest.NewServer(storagehttp.New(storagehttp.Options{
			DataDir: dir,
			Secret:  testSecret,
			Logger:  quietLogger(),
		}))
		t.Cleanup(node.Close)
		st.nodes = append(st.nodes, node)
		st.nodeDirs = append(st.nodeDirs, dir)
		urls = append(urls, node.URL)
	}

	cfg := &config.Config{
		Backend:       config.BackendNode,
		MetaDSN:       "memory://",
		Storages:      urls,
		SigningSecret: testSecret,
		URLTTL:        time.Minute,
		KeyPrefix:     "it",
		APITokens:     []string{testToken},
	}
	h, srv, err := resthttp.NewServer(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	st.server = srv
	st.rest = httptest.NewServer(h)
	t.Cleanup(st.rest.Close)
	return st
}

func (s *stack) backend(token string) *backendclient.Client {
	return backendclient.New(s.rest.URL, token, &http.Client{Timeout: 10 * time.Second})
}

// orchestrator собирает загрузчик так же, как это делает cmd/upload.
func (s *stack) orchestrator(t *testing.T, transporter uploadsvc.Transporter, mutate func(*uploadsvc.Deps)) *uploadsvc.Orchestrator {
	t.Helper()
	backend := s.backend(testToken)
	if transporter == nil {
		transporter = storageclient.NewTransporter()
	}
	deps := uploadsvc.Deps{
		Initiator:   backend,
		Transporter: transporter,
		Finalizer:   backend,
		Aborter:     backend,
		PartSize:    64 << 10,
		Logger:      quietLogger(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return uploadsvc.New(deps)
}
