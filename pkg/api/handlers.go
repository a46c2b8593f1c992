package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/harveywai/thermopanel/pkg/auth"
	"github.com/harveywai/thermopanel/pkg/database"
	"github.com/harveywai/thermopanel/pkg/middleware"
	"github.com/harveywai/thermopanel/pkg/notify"
	"github.com/harveywai/thermopanel/pkg/security"
)

var errInvalidTemperature = errors.New("invalid temperature value")

// handleLogin checks credentials, when login validation is enabled, and sets the session cookie.
func (s *Server) handleLogin(c *gin.Context) {
	type requestBody struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	var body requestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.Reject(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	// With validation disabled anyone gets in as admin.
	role := "admin"
	if s.settings.Get().LoginValidation {
		user, err := database.FindUser(s.db, body.Username)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error().Err(err).Msg("failed to look up user")
			middleware.Reject(c, http.StatusInternalServerError, "Internal error.")
			return
		}
		if user == nil || !auth.CheckPassword(user.Password, body.Password) {
			s.log.Info().Str("username", body.Username).Msg("login rejected")
			c.JSON(http.StatusOK, gin.H{
				"success": false,
				"message": "Invalid credentials.",
			})
			return
		}
		role = user.Role
	}

	token, err := s.signer.GenerateToken(body.Username, role)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to generate session token")
		middleware.Reject(c, http.StatusInternalServerError, "Internal error.")
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.SessionCookie, token, int(s.signer.TTL().Seconds()), "/", "", s.opts.SecureCookie, true)

	s.log.Info().Str("username", body.Username).Str("role", role).Msg("user logged in")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"role":    role,
	})
}

// handleLogout clears the session cookie.
func (s *Server) handleLogout(c *gin.Context) {
	if user := middleware.Username(c); user != "" {
		s.log.Info().Str("username", user).Msg("user logged out")
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", s.opts.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleUpdateSecurity applies the flags present in the body.
func (s *Server) handleUpdateSecurity(c *gin.Context) {
	var body security.Update
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.Reject(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	settings := s.settings.Apply(body)
	s.log.Info().
		Bool("acl", settings.ACL).
		Bool("login_validation", settings.LoginValidation).
		Bool("dos_protection", settings.DosProtection).
		Str("by", middleware.Username(c)).
		Msg("security settings updated")

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"security_enabled": settings,
	})
}

// handleListThermostats returns all thermostats in insertion order.
func (s *Server) handleListThermostats(c *gin.Context) {
	thermostats, err := database.ListThermostats(s.db)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list thermostats")
		middleware.Reject(c, http.StatusInternalServerError, "Failed to list thermostats.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"thermostats": thermostats,
	})
}

// handleAddThermostat creates a thermostat at the default temperature.
func (s *Server) handleAddThermostat(c *gin.Context) {
	t, err := database.CreateThermostat(s.db, database.DefaultTemperature)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to add thermostat")
		middleware.Reject(c, http.StatusInternalServerError, "Failed to add thermostat.")
		return
	}

	s.log.Info().Str("id", t.ID).Msg("thermostat added")
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"thermostat": t,
	})
}

// handleRemoveThermostat deletes the thermostat named in the body.
func (s *Server) handleRemoveThermostat(c *gin.Context) {
	type requestBody struct {
		ThermostatID string `json:"thermostat_id"`
	}

	var body requestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.Reject(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	removed, err := database.RemoveThermostat(s.db, body.ThermostatID)
	if errors.Is(err, database.ErrThermostatNotFound) {
		middleware.Reject(c, http.StatusNotFound, "Thermostat ID not found.")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("id", body.ThermostatID).Msg("failed to remove thermostat")
		middleware.Reject(c, http.StatusInternalServerError, "Failed to remove thermostat.")
		return
	}

	s.log.Info().Str("id", removed.ID).Msg("thermostat removed")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"removed": removed,
	})
}

// handleSetTemperature validates and applies a new set-point.
func (s *Server) handleSetTemperature(c *gin.Context) {
	type requestBody struct {
		ThermostatID string          `json:"thermostat_id"`
		Temperature  json.RawMessage `json:"temperature"`
	}

	var body requestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.Reject(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if _, err := database.GetThermostat(s.db, body.ThermostatID); err != nil {
		if errors.Is(err, database.ErrThermostatNotFound) {
			middleware.Reject(c, http.StatusNotFound, "Thermostat ID not found.")
			return
		}
		s.log.Error().Err(err).Msg("failed to look up thermostat")
		middleware.Reject(c, http.StatusInternalServerError, "Failed to set temperature.")
		return
	}

	temp, err := parseTemperature(body.Temperature)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "Invalid temperature value.",
		})
		return
	}

	if temp < minTemperature || temp > maxTemperature {
		middleware.Reject(c, http.StatusBadRequest,
			fmt.Sprintf("Temperature must be between %d°C and %d°C.", minTemperature, maxTemperature))
		return
	}

	t, err := database.SetTemperature(s.db, body.ThermostatID, temp)
	if errors.Is(err, database.ErrThermostatNotFound) {
		middleware.Reject(c, http.StatusNotFound, "Thermostat ID not found.")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("id", body.ThermostatID).Msg("failed to set temperature")
		middleware.Reject(c, http.StatusInternalServerError, "Failed to set temperature.")
		return
	}

	s.log.Info().Str("id", t.ID).Int("temperature", t.Temperature).Msg("temperature set")
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    fmt.Sprintf("Thermostat %s set to %d°C.", t.ID, t.Temperature),
		"thermostat": t,
	})
}

// parseTemperature accepts a JSON number (truncated toward zero) or a string
// holding a base-10 integer.
func parseTemperature(raw json.RawMessage) (int, error) {
	var v interface{}
	if len(raw) == 0 {
		return 0, errInvalidTemperature
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, errInvalidTemperature
	}

	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || math.Abs(t) > math.MaxInt32 {
			return 0, errInvalidTemperature
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, errInvalidTemperature
		}
		return n, nil
	default:
		return 0, errInvalidTemperature
	}
}

// handleSimulateDos runs a DoS simulation at the requested intensity.
func (s *Server) handleSimulateDos(c *gin.Context) {
	intensity := c.DefaultQuery("intensity", "low")

	result, err := s.simulator.DoS(c.Request.Context(), s.settings.Get(), intensity)
	if err != nil {
		// client went away during the simulated delay
		s.log.Debug().Err(err).Msg("dos simulation aborted")
		c.Abort()
		return
	}

	s.log.Info().Str("intensity", intensity).Bool("success", result.Success).Msg("dos simulation")
	if result.Success {
		s.notifier.AttackSucceeded(notify.EventDosSucceeded, result.Message)
	}
	c.JSON(http.StatusOK, result)
}

// handleSimulateUnauthorized runs an unauthorized access simulation.
func (s *Server) handleSimulateUnauthorized(c *gin.Context) {
	result := s.simulator.Unauthorized(s.settings.Get())

	s.log.Info().Bool("success", result.Success).Msg("unauthorized access simulation")
	if result.Success {
		s.notifier.AttackSucceeded(notify.EventUnauthorizedSucceeded, result.Message)
	}
	c.JSON(http.StatusOK, result)
}
