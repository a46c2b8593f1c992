// Package api implements the thermostat panel backend on top of Gin.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/harveywai/thermopanel/pkg/auth"
	"github.com/harveywai/thermopanel/pkg/middleware"
	"github.com/harveywai/thermopanel/pkg/notify"
	"github.com/harveywai/thermopanel/pkg/security"
	"github.com/harveywai/thermopanel/pkg/simulate"
)

const (
	// minTemperature and maxTemperature bound accepted set-points, in °C.
	minTemperature = 10
	maxTemperature = 25
)

// Options tunes the server.
type Options struct {
	AllowedIPs []string
	// TrustedProxies may set X-Forwarded-For. Empty means the client IP is
	// always the TCP peer.
	TrustedProxies []string
	RateLimit      float64 // requests per second per client
	RateBurst      int
	SecureCookie   bool
}

// Server holds the backend dependencies shared by the handlers.
type Server struct {
	db        *gorm.DB
	settings  *security.Store
	signer    *auth.Signer
	simulator *simulate.Simulator
	notifier  *notify.Notifier
	limiter   *middleware.RateLimiter
	opts      Options
	log       zerolog.Logger
}

// New returns a Server. A nil simulator or notifier gets a default.
func New(db *gorm.DB, settings *security.Store, signer *auth.Signer, sim *simulate.Simulator, notifier *notify.Notifier, opts Options, log zerolog.Logger) *Server {
	if sim == nil {
		sim = simulate.New()
	}
	if notifier == nil {
		notifier = notify.New("", log)
	}
	return &Server{
		db:        db,
		settings:  settings,
		signer:    signer,
		simulator: sim,
		notifier:  notifier,
		limiter:   middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst),
		opts:      opts,
		log:       log,
	}
}

// Router builds the Gin engine serving every panel endpoint.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(s.opts.TrustedProxies); err != nil {
		s.log.Error().Err(err).Strs("trusted_proxies", s.opts.TrustedProxies).Msg("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(s.log))
	r.Use(s.limiter.Middleware(s.settings))
	r.Use(middleware.SessionMiddleware(s.signer))

	// Session and settings
	r.POST("/login", s.handleLogin)
	r.POST("/logout", s.handleLogout)
	r.POST("/update_security", s.handleUpdateSecurity)

	// Thermostats
	r.GET("/list_thermostats", s.handleListThermostats)
	acl := middleware.ACLMiddleware(s.settings, s.opts.AllowedIPs)
	r.POST("/add_thermostat", middleware.RoleMiddleware("admin", "add thermostats"), acl, s.handleAddThermostat)
	r.POST("/remove_thermostat", middleware.RoleMiddleware("admin", "remove thermostats"), acl, s.handleRemoveThermostat)
	r.POST("/set_temperature", middleware.RoleMiddleware("admin", "set temperature"), acl, s.handleSetTemperature)

	// Attack simulations
	r.GET("/simulate_dos", s.handleSimulateDos)
	r.GET("/simulate_unauthorized", s.handleSimulateUnauthorized)

	return r
}
