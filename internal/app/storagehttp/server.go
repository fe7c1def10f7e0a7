package storagehttp

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	uploadsDirName     = "uploads"
	objectsDirName     = "objects"
	completedDirName   = "completed"
	metaFileName       = "meta.json"
	partFilenameFormat = "part-%05d.bin"
)

// Options настраивают узел хранения.
type Options struct {
	DataDir string
	// Secret проверяет подписи URL частей. Пустой секрет отключает проверку.
	Secret string
	Logger *slog.Logger
	Now    func() time.Time
}

// Server serves the storage node HTTP API on top of the local filesystem.
type Server struct {
	dataDir string
	secret  string
	logger  *slog.Logger
	now     func() time.Time

	// metaMu сериализует read-modify-write meta.json между параллельными PUT частей.
	metaMu sync.Mutex
}

// New создаёт HTTP-обработчик стоража поверх каталога с данными.
func New(opts Options) http.Handler {
	return newServer(opts).routes()
}

func newServer(opts Options) *Server {
	srv := &Server{
		dataDir: opts.DataDir,
		secret:  opts.Secret,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if srv.logger == nil {
		srv.logger = slog.Default()
	}
	if srv.now == nil {
		srv.now = time.Now
	}
	if srv.secret == "" {
		srv.logger.Warn("signing secret is empty, part URLs are not verified")
	}
	return srv
}

// routes регистрирует обработчики загрузок, объектов, здоровья и GC.
func (a *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/uploads/{uploadID}", func(ur chi.Router) {
		ur.Post("/", a.createUpload)
		ur.Delete("/", a.abortUpload)
		ur.Post("/complete", a.completeUpload)

		ur.Route("/parts/{partNumber}", func(pr chi.Router) {
			pr.Put("/", a.insertPart)
			pr.Get("/", a.fetchPart)
			pr.Head("/", a.inspectPart)
		})
	})

	r.Get("/objects/*", a.fetchObject)
	r.Get("/health", a.health)
	r.Post("/admin/gc", a.gcOnce)

	return r
}

func (a *Server) uploadsDir() string {
	return filepath.Join(a.dataDir, uploadsDirName)
}

func (a *Server) objectsDir() string {
	return filepath.Join(a.dataDir, objectsDirName)
}

func (a *Server) completedDir() string {
	return filepath.Join(a.dataDir, completedDirName)
}
