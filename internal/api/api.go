package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "wa-relay/docs"
	"wa-relay/internal/auth"
	"wa-relay/internal/config"
	"wa-relay/internal/logging"
	"wa-relay/internal/metrics"
	"wa-relay/internal/model"
	"wa-relay/internal/storage"
	"wa-relay/internal/whatsapp"
)

// Sender is the outbound half of the provider client.
type Sender interface {
	SendText(ctx context.Context, to, text string) (*model.Message, error)
	SendMedia(ctx context.Context, to, mediaType, mediaURL, caption string) (*model.Message, error)
}

type MessageReader interface {
	List(limit, offset int) model.Page
	Get(id string) (model.Message, bool)
}

type WebhookHandler interface {
	HandleWebhook(payload []byte) whatsapp.Result
}

type API struct {
	Cfg    *config.Config
	Sender Sender
	Store  MessageReader
	Inbox  WebhookHandler
	Files  *storage.FileStore
	Feed   http.Handler
	Log    logrus.FieldLogger
}

func NewAPI(cfg *config.Config, sender Sender, store MessageReader, inbox WebhookHandler, files *storage.FileStore, log logrus.FieldLogger) *API {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &API{
		Cfg:    cfg,
		Sender: sender,
		Store:  store,
		Inbox:  inbox,
		Files:  files,
		Log:    log.WithField("component", "api"),
	}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(a.Log))
	r.Use(middleware.Recoverer)

	// Public
	r.Get("/", a.Root)
	r.Get("/health", a.Health)
	r.Get("/config", a.ConfigStatus)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/webhook", func(r chi.Router) {
		r.Use(auth.SignatureMiddleware(a.Cfg.WhatsApp.AppSecret, a.Log))
		r.Get("/", a.VerifyWebhook)
		r.Post("/", a.ReceiveWebhook)
		r.Get("/status", a.WebhookStatus)
	})

	if a.Files != nil {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.Files.Dir()))))
	}
	if a.Feed != nil {
		r.Handle("/ws/messages", a.Feed)
	}

	// Secured
	r.Route("/api/messages", func(r chi.Router) {
		r.Use(auth.APITokenMiddleware(a.Cfg.API.Token))

		r.Post("/send", a.SendMessage)
		r.Post("/send-text", a.SendText)
		r.Post("/send-media", a.SendMedia)
		r.Get("/", a.ListMessages)
		r.Post("/media/upload", a.UploadMedia)
		r.Get("/media/test/{filename}", a.TestMediaAccess)
		r.Get("/{id}", a.GetMessage)
	})

	return r
}
