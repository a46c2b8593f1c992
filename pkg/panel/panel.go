// Package panel is the controller of the thermostat management panel. It owns
// the view state, relays every user action to the backend and patches the
// view from the response.
package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/harveywai/thermopanel/pkg/client"
	"github.com/harveywai/thermopanel/pkg/security"
	"github.com/harveywai/thermopanel/pkg/simulate"
)

// ErrUnknownElement is returned when a form element name is not part of the panel.
var ErrUnknownElement = errors.New("unknown panel element")

// Backend is the backend API used by the panel. *client.Client implements it.
type Backend interface {
	Login(ctx context.Context, username, password string) (*client.LoginResult, error)
	Logout(ctx context.Context) error
	UpdateSecurity(ctx context.Context, settings security.Settings) (*client.SecurityResult, error)
	ListThermostats(ctx context.Context) (*client.ThermostatList, error)
	AddThermostat(ctx context.Context) (*client.ThermostatResult, error)
	RemoveThermostat(ctx context.Context, id string) (*client.RemoveResult, error)
	SetTemperature(ctx context.Context, id, temperature string) (*client.Result, error)
	SimulateDoS(ctx context.Context, intensity string) (*client.DoSResult, error)
	SimulateUnauthorized(ctx context.Context) (*client.Result, error)
}

// Renderer draws a view snapshot. It is called with the panel lock held and
// must not call back into the panel.
type Renderer interface {
	Render(v View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(v View)

// Render calls f(v).
func (f RendererFunc) Render(v View) {
	f(v)
}

// Option configures a Panel.
type Option func(*Panel)

// WithRenderer draws the view after every change.
func WithRenderer(r Renderer) Option {
	return func(p *Panel) {
		p.renderer = r
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Panel) {
		p.log = log
	}
}

// Panel is safe for concurrent use.
type Panel struct {
	backend  Backend
	settings *security.Store
	renderer Renderer
	log      zerolog.Logger

	mu   sync.Mutex
	view View

	// listToken identifies the latest issued list refresh.
	listToken atomic.Uint64
}

// New returns a logged-out panel whose toggles mirror settings.
func New(backend Backend, settings *security.Store, opts ...Option) *Panel {
	p := &Panel{
		backend:  backend,
		settings: settings,
		log:      zerolog.Nop(),
		view: View{
			Session: LoggedOut,
			Status:  StatusLoggedOut,
			Toggles: settings.Get(),
			Inputs:  map[string]string{},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns a copy of the current view.
func (p *Panel) Snapshot() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view.clone()
}

// Settings returns the last submitted security settings.
func (p *Panel) Settings() security.Settings {
	return p.settings.Get()
}

// Render draws the current view again.
func (p *Panel) Render() {
	p.update(func(*View) {})
}

// updateIf applies fn and renders when it reports a change.
func (p *Panel) updateIf(fn func(v *View) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !fn(&p.view) {
		return
	}
	if p.renderer != nil {
		p.renderer.Render(p.view.clone())
	}
}

func (p *Panel) update(fn func(v *View)) {
	p.updateIf(func(v *View) bool {
		fn(v)
		return true
	})
}

func (p *Panel) dismissAlert() {
	p.mu.Lock()
	p.view.Alert = ""
	p.mu.Unlock()
}

func (p *Panel) alert(message string) {
	p.log.Warn().Str("alert", message).Msg("panel alert")
	p.update(func(v *View) {
		v.Alert = message
	})
}

// fail alerts with prefix followed by the backend message, or by the
// transport error, and returns err.
func (p *Panel) fail(prefix string, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		p.alert(prefix + apiErr.Message)
	} else {
		p.alert(prefix + err.Error())
	}
	return err
}

// Load mirrors the owned settings into the toggles and fetches the list, as
// done when the panel is first shown.
func (p *Panel) Load(ctx context.Context) error {
	settings := p.settings.Get()
	p.update(func(v *View) {
		v.Toggles = settings
	})
	return p.ListThermostats(ctx)
}

// Login sends the credentials as-is. On success the control section is shown
// and the list refreshed.
func (p *Panel) Login(ctx context.Context, username, password string) error {
	p.dismissAlert()

	res, err := p.backend.Login(ctx, username, password)
	if err == nil {
		err = res.Err("login")
	}
	if err != nil {
		return p.fail("Login failed: ", err)
	}

	p.log.Info().Str("username", username).Str("role", res.Role).Msg("logged in")
	p.update(func(v *View) {
		v.Session = LoggedIn
		v.Status = statusLoggedInPrefix + username
	})
	return p.ListThermostats(ctx)
}

// Logout resets the panel to the logged-out state whatever the backend
// answers. A transport error is still returned.
func (p *Panel) Logout(ctx context.Context) error {
	p.dismissAlert()

	err := p.backend.Logout(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("logout request failed")
	}

	p.update(func(v *View) {
		v.Session = LoggedOut
		v.Status = StatusLoggedOut
		v.AttackStatus = ""
	})
	return err
}

// SetToggles replaces the whole security form.
func (p *Panel) SetToggles(toggles security.Settings) {
	p.update(func(v *View) {
		v.Toggles = toggles
	})
}

// SetToggle checks or unchecks one security toggle by element name.
func (p *Panel) SetToggle(element string, on bool) error {
	var field func(*security.Settings) *bool
	switch element {
	case ElementACLToggle:
		field = func(s *security.Settings) *bool { return &s.ACL }
	case ElementLoginValidationToggle:
		field = func(s *security.Settings) *bool { return &s.LoginValidation }
	case ElementDosProtectionToggle:
		field = func(s *security.Settings) *bool { return &s.DosProtection }
	default:
		return fmt.Errorf("%w: %q", ErrUnknownElement, element)
	}

	p.update(func(v *View) {
		*field(&v.Toggles) = on
	})
	return nil
}

// UpdateSecurity submits the security form. The owned settings take the form
// values before the request is sent, whatever the outcome.
func (p *Panel) UpdateSecurity(ctx context.Context) error {
	p.dismissAlert()

	toggles := p.Snapshot().Toggles
	p.settings.Set(toggles)

	res, err := p.backend.UpdateSecurity(ctx, toggles)
	if err == nil {
		err = res.Err("update_security")
	}
	if err != nil {
		return p.fail("Failed to update security settings: ", err)
	}

	p.update(func(v *View) {
		v.Status = StatusSecurityUpdated
	})
	return nil
}

// ListThermostats fetches the collection and replaces the displayed list.
// A response is dropped when a newer refresh was issued meanwhile, so the
// list always shows the latest refresh. On failure the list is left as is.
func (p *Panel) ListThermostats(ctx context.Context) error {
	token := p.listToken.Add(1)

	res, err := p.backend.ListThermostats(ctx)
	if err == nil {
		err = res.Err("list_thermostats")
	}

	if p.listToken.Load() != token {
		p.log.Debug().Uint64("token", token).Msg("dropping superseded thermostat list")
		return nil
	}
	if err != nil {
		return p.fail("Failed to list thermostats: ", err)
	}

	thermostats := make([]client.Thermostat, len(res.Thermostats))
	copy(thermostats, res.Thermostats)

	p.updateIf(func(v *View) bool {
		if p.listToken.Load() != token {
			return false
		}
		v.Thermostats = thermostats
		// the list is rebuilt from scratch, typed values included
		v.Inputs = map[string]string{}
		return true
	})
	return nil
}

// AddThermostat asks the backend for a new thermostat and refreshes the list.
func (p *Panel) AddThermostat(ctx context.Context) error {
	p.dismissAlert()

	res, err := p.backend.AddThermostat(ctx)
	if err == nil {
		err = res.Err("add_thermostat")
	}
	if err != nil {
		return p.fail("Failed to add thermostat: ", err)
	}

	p.update(func(v *View) {
		v.Status = StatusThermostatAdded
	})
	return p.ListThermostats(ctx)
}

// RemoveThermostat deletes a thermostat and refreshes the list.
func (p *Panel) RemoveThermostat(ctx context.Context, id string) error {
	p.dismissAlert()

	res, err := p.backend.RemoveThermostat(ctx, id)
	if err == nil {
		err = res.Err("remove_thermostat")
	}
	if err != nil {
		return p.fail("Failed to remove thermostat: ", err)
	}

	p.update(func(v *View) {
		v.Status = StatusThermostatRemoved
	})
	return p.ListThermostats(ctx)
}

// SetTemperatureInput types value into the temperature input of a thermostat.
func (p *Panel) SetTemperatureInput(id, value string) {
	p.update(func(v *View) {
		v.Inputs[id] = value
	})
}

// SetTemperature sends the typed temperature of a thermostat unparsed. Any
// response is shown in the status line and followed by exactly one list
// refresh; a backend failure is additionally alerted and returned.
func (p *Panel) SetTemperature(ctx context.Context, id string) error {
	p.dismissAlert()

	p.mu.Lock()
	value := p.view.Inputs[id]
	p.mu.Unlock()

	res, err := p.backend.SetTemperature(ctx, id, value)
	if err != nil {
		return p.fail("Failed to set temperature: ", err)
	}

	p.update(func(v *View) {
		v.Status = res.Message
	})
	listErr := p.ListThermostats(ctx)

	if err := res.Err("set_temperature"); err != nil {
		return p.fail("Failed to set temperature: ", err)
	}
	return listErr
}

// SimulateDosAttack runs a DoS simulation. An empty intensity means low;
// anything but low, medium or high is rejected without contacting the backend.
func (p *Panel) SimulateDosAttack(ctx context.Context, intensity string) error {
	p.dismissAlert()

	in, err := simulate.ParseIntensity(intensity)
	if err != nil {
		p.alert(fmt.Sprintf("Invalid attack intensity %q: choose low, medium or high.", intensity))
		return err
	}

	res, err := p.backend.SimulateDoS(ctx, string(in))
	if err != nil {
		return p.fail("DoS simulation failed: ", err)
	}

	// success=false means the attack was blocked, which is a normal outcome
	p.update(func(v *View) {
		v.AttackStatus = fmt.Sprintf(responseTimeStatusFormat, res.Message, res.ResponseTime)
	})
	return nil
}

// SimulateUnauthorizedAccess runs an unauthorized access simulation.
func (p *Panel) SimulateUnauthorizedAccess(ctx context.Context) error {
	p.dismissAlert()

	res, err := p.backend.SimulateUnauthorized(ctx)
	if err != nil {
		return p.fail("Unauthorized access simulation failed: ", err)
	}

	p.update(func(v *View) {
		v.AttackStatus = res.Message
	})
	return nil
}
