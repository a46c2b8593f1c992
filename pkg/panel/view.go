package panel

import (
	"github.com/harveywai/thermopanel/pkg/client"
	"github.com/harveywai/thermopanel/pkg/security"
)

// SessionState is the panel's macro state.
type SessionState int

const (
	// LoggedOut shows the login section.
	LoggedOut SessionState = iota
	// LoggedIn shows the control section.
	LoggedIn
)

func (s SessionState) String() string {
	switch s {
	case LoggedIn:
		return "logged-in"
	default:
		return "logged-out"
	}
}

// Element names of the panel. Renderers label their output with them.
const (
	ElementACLToggle             = "acl_toggle"
	ElementLoginValidationToggle = "login_validation_toggle"
	ElementDosProtectionToggle   = "dos_protection_toggle"
	ElementUsername              = "username"
	ElementPassword              = "password"
	ElementStatus                = "status"
	ElementLoginSection          = "login-section"
	ElementControlSection        = "control-section"
	ElementThermostatList        = "thermostat-list"
	ElementAttackStatus          = "attack-status"
)

// Bounds advertised on temperature inputs. They are not enforced here.
const (
	TemperatureInputMin = 10
	TemperatureInputMax = 25
)

// TemperatureInputID names the temperature input of a thermostat block.
func TemperatureInputID(thermostatID string) string {
	return "temp_" + thermostatID
}

// Status lines.
const (
	StatusLoggedOut          = "Status: Not logged in."
	StatusSecurityUpdated    = "Security settings updated."
	StatusThermostatAdded    = "Thermostat added successfully."
	StatusThermostatRemoved  = "Thermostat removed successfully."
	statusLoggedInPrefix     = "Status: Logged in as "
	responseTimeStatusFormat = "%s (Response Time: %.2f seconds)"
)

// View is a snapshot of everything the panel displays.
type View struct {
	Session      SessionState
	Status       string
	AttackStatus string
	// Alert is the last failure shown to the user; cleared when the next action starts.
	Alert string

	// Toggles is the security form as currently checked, not necessarily submitted.
	Toggles security.Settings
	// Thermostats is the last applied list, in server order.
	Thermostats []client.Thermostat
	// Inputs holds the typed temperature per thermostat id.
	Inputs map[string]string
}

// LoginVisible reports whether the login section is shown.
func (v View) LoginVisible() bool {
	return v.Session == LoggedOut
}

// ControlVisible reports whether the control section is shown.
func (v View) ControlVisible() bool {
	return v.Session == LoggedIn
}

func (v View) clone() View {
	out := v
	if v.Thermostats != nil {
		out.Thermostats = make([]client.Thermostat, len(v.Thermostats))
		copy(out.Thermostats, v.Thermostats)
	}
	out.Inputs = make(map[string]string, len(v.Inputs))
	for k, val := range v.Inputs {
		out.Inputs[k] = val
	}
	return out
}
