package routes

import (
	"context"
	"net/http"

	"studysync/config"
	"studysync/controllers"
	"studysync/helpers"
	"studysync/metrics"
	"studysync/services"
	"studysync/socket"
	"studysync/storage"

	socketio "github.com/googollee/go-socket.io"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRoutes sets up the unauthenticated utility routes
func RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", controllers.HealthCheckHandler).Methods("GET")
	r.HandleFunc("/", controllers.WelcomeHandler).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.NotFoundHandler = http.HandlerFunc(controllers.NotFoundHandler)
}

// Options are the collaborators of an App that callers may supply
type Options struct {
	// Broker defaults to an in-process broker
	Broker socket.Broker
	// Uploads enables /api/uploads when non-nil
	Uploads *services.UploadService
	// BcryptCost overrides bcrypt.DefaultCost, tests use bcrypt.MinCost
	BcryptCost int
}

// App is the wired StudySync API server
type App struct {
	Handler  http.Handler
	Router   *mux.Router
	Sessions *sessions.CookieStore
	Hub      *socket.Hub
	SocketIO *socketio.Server

	Auth          *services.AuthService
	Chat          *services.ChatService
	Matching      *services.MatchingService
	StudySessions *services.StudySessionService
}

// NewApp wires services, controllers and routes over store.
func NewApp(cfg *config.Server, store storage.Store, opts Options, log zerolog.Logger) (*App, error) {
	hub, err := socket.NewHub(opts.Broker, log.With().Str("component", "hub").Logger())
	if err != nil {
		return nil, err
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	chat := &services.ChatService{Store: store, Broadcaster: hub, Log: log}
	hub.Chat = chat
	auth := &services.AuthService{Store: store, Log: log, Cost: cost}
	app := &App{
		Router:        mux.NewRouter(),
		Sessions:      helpers.NewSessionStore(cfg.SessionSecret, cfg.SecureCookies),
		Hub:           hub,
		Auth:          auth,
		Chat:          chat,
		Matching:      &services.MatchingService{Store: store, Chat: chat, Log: log},
		StudySessions: &services.StudySessionService{Store: store, Chat: chat, Log: log},
	}
	oauth := services.NewOAuthService(cfg, auth)
	app.SocketIO = socket.NewSocketServer(hub, app.Sessions, log)

	r := app.Router
	r.Use(Recover(log), AccessLog(log), metrics.Middleware)

	RegisterRoutes(r)
	RegisterAuthRoutes(r, controllers.NewAuthController(auth, oauth, app.Sessions, cfg.FrontendURL, log), app.Sessions)
	RegisterMatchRoutes(r, app.Matching, app.Sessions, log)
	RegisterChatRoutes(r, chat, app.Sessions, log)
	RegisterSessionRoutes(r, app.StudySessions, app.Sessions, log)
	if opts.Uploads != nil {
		RegisterS3Routes(r, opts.Uploads, app.Sessions, log)
	}
	r.Handle("/ws", RequireSession(app.Sessions)(http.HandlerFunc(hub.ServeWS)))
	r.PathPrefix("/socket.io/").Handler(app.SocketIO)

	app.Handler = cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	log.Info().Int("oauth_providers", len(oauth.Providers)).Bool("uploads", opts.Uploads != nil).Msg("Routes registered")
	return app, nil
}

// Start runs the Socket.IO event loop until ctx ends
func (a *App) Start(ctx context.Context) {
	go func() {
		_ = a.SocketIO.Serve()
	}()
	go func() {
		<-ctx.Done()
		_ = a.SocketIO.Close()
	}()
}

// Close releases the hub broker
func (a *App) Close() error {
	return a.Hub.Close()
}
