package panel

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/harveywai/thermopanel/pkg/client"
)

// TerminalRenderer draws the panel as text, colored when the terminal supports it.
type TerminalRenderer struct {
	w io.Writer

	header  *color.Color
	section *color.Color
	on      *color.Color
	off     *color.Color
	alert   *color.Color
	attack  *color.Color
}

// NewTerminalRenderer returns a renderer writing to w.
func NewTerminalRenderer(w io.Writer) *TerminalRenderer {
	return &TerminalRenderer{
		w:       w,
		header:  color.New(color.FgCyan, color.Bold),
		section: color.New(color.FgBlue),
		on:      color.New(color.FgGreen),
		off:     color.New(color.FgRed),
		alert:   color.New(color.FgWhite, color.BgRed, color.Bold),
		attack:  color.New(color.FgYellow),
	}
}

// Render writes the full panel.
func (r *TerminalRenderer) Render(v View) {
	fmt.Fprintln(r.w, strings.Repeat("=", 60))
	r.header.Fprintln(r.w, "Smart Thermostat Panel")
	fmt.Fprintf(r.w, "[%s] %s\n", ElementStatus, v.Status)

	if v.Alert != "" {
		r.alert.Fprintf(r.w, "! %s\n", v.Alert)
	}

	if v.LoginVisible() {
		r.section.Fprintf(r.w, "-- %s --\n", ElementLoginSection)
		fmt.Fprintf(r.w, "  [%s] [%s]  login <username> <password>\n", ElementUsername, ElementPassword)
	}

	if v.ControlVisible() {
		r.section.Fprintf(r.w, "-- %s --\n", ElementControlSection)
		fmt.Fprintf(r.w, "  security: %s %s %s\n",
			r.toggle(ElementACLToggle, v.Toggles.ACL),
			r.toggle(ElementLoginValidationToggle, v.Toggles.LoginValidation),
			r.toggle(ElementDosProtectionToggle, v.Toggles.DosProtection),
		)

		r.section.Fprintf(r.w, "  -- %s --\n", ElementThermostatList)
		if len(v.Thermostats) == 0 {
			fmt.Fprintln(r.w, "  (no thermostats)")
		}
		for _, t := range v.Thermostats {
			for _, line := range strings.Split(ThermostatBlock(t, v.Inputs[t.ID]), "\n") {
				fmt.Fprintf(r.w, "    %s\n", line)
			}
		}

		r.attack.Fprintf(r.w, "  [%s] %s\n", ElementAttackStatus, v.AttackStatus)
	}

	fmt.Fprintln(r.w, strings.Repeat("=", 60))
}

func (r *TerminalRenderer) toggle(name string, checked bool) string {
	if checked {
		return r.on.Sprintf("[x] %s", name)
	}
	return r.off.Sprintf("[ ] %s", name)
}

// ThermostatBlock is the text block of one thermostat: its id, temperature,
// temperature input and actions.
func ThermostatBlock(t client.Thermostat, input string) string {
	if input == "" {
		input = "New Temperature"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ID: %s\n", t.ID)
	fmt.Fprintf(&b, "Temperature: %s°C\n", FormatTemperature(t.Temperature))
	fmt.Fprintf(&b, "[%s: %s (%d-%d)] [Set Temperature] [Remove]\n",
		TemperatureInputID(t.ID), input, TemperatureInputMin, TemperatureInputMax)
	b.WriteString("---")
	return b.String()
}

// FormatTemperature prints a temperature without trailing zeros: 20, 20.5.
func FormatTemperature(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}
