package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/fatih/color"

	"github.com/harveywai/thermopanel/pkg/panel"
)

const prompt = "thermopanel> "

const helpText = `Commands:
  login <username> <password>   log in (the password runs to the end of the line)
  logout                        log out
  list                          refresh the thermostat list
  add                           add a thermostat
  remove <id>                   remove a thermostat
  input <id> <value>            type a new temperature for a thermostat
  temp <id> [value]             set the temperature (typed value if omitted)
  toggle <setting> <on|off>     check a security setting: acl, login_validation, dos_protection
  security                      submit the security settings
  dos [low|medium|high]         simulate a DoS attack (default low)
  unauthorized                  simulate unauthorized access
  show                          draw the panel again
  help                          show this help
  quit                          leave`

// errQuit ends the session.
var errQuit = errors.New("quit")

// usageError is a command line that could not be understood. It is reported
// to the user; the panel is not touched.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usagef(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

var toggleElements = map[string]string{
	"acl":              panel.ElementACLToggle,
	"login_validation": panel.ElementLoginValidationToggle,
	"dos_protection":   panel.ElementDosProtectionToggle,
}

// shell maps command lines onto panel actions.
type shell struct {
	panel *panel.Panel
	out   io.Writer
}

func newShellFor(p *panel.Panel, out io.Writer) *shell {
	return &shell{panel: p, out: out}
}

// run reads commands from in until EOF, quit or cancellation. Backend
// failures are shown by the panel and do not end the session.
func (s *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(s.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		err := s.exec(ctx, scanner.Text())
		var usage *usageError
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			return nil
		case errors.As(err, &usage):
			color.New(color.FgRed).Fprintln(s.out, usage.msg)
		}
	}
}

// exec runs a single command line.
func (s *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "login":
		// the password is the rest of the line, spaces included; missing
		// credentials are sent empty and the backend decides
		_, rest := cutWord(line)
		username, password := cutWord(rest)
		return s.panel.Login(ctx, username, password)

	case "logout":
		return s.panel.Logout(ctx)

	case "list":
		return s.panel.ListThermostats(ctx)

	case "add":
		return s.panel.AddThermostat(ctx)

	case "remove", "rm":
		if len(args) != 1 {
			return usagef("usage: remove <id>")
		}
		return s.panel.RemoveThermostat(ctx, args[0])

	case "input":
		if len(args) != 2 {
			return usagef("usage: input <id> <value>")
		}
		s.panel.SetTemperatureInput(args[0], args[1])
		return nil

	case "temp", "set":
		if len(args) < 1 || len(args) > 2 {
			return usagef("usage: temp <id> [value]")
		}
		if len(args) == 2 {
			s.panel.SetTemperatureInput(args[0], args[1])
		}
		return s.panel.SetTemperature(ctx, args[0])

	case "toggle":
		if len(args) != 2 {
			return usagef("usage: toggle <acl|login_validation|dos_protection> <on|off>")
		}
		element, ok := toggleElements[strings.ToLower(args[0])]
		if !ok {
			return usagef("unknown setting %q: use acl, login_validation or dos_protection", args[0])
		}
		on, err := parseSwitch(args[1])
		if err != nil {
			return err
		}
		return s.panel.SetToggle(element, on)

	case "security":
		return s.panel.UpdateSecurity(ctx)

	case "dos":
		if len(args) > 1 {
			return usagef("usage: dos [low|medium|high]")
		}
		return s.panel.SimulateDosAttack(ctx, arg(args, 0))

	case "unauthorized":
		return s.panel.SimulateUnauthorizedAccess(ctx)

	case "show":
		s.panel.Render()
		return nil

	case "help", "?":
		fmt.Fprintln(s.out, helpText)
		return nil

	case "quit", "exit":
		return errQuit

	default:
		return usagef("unknown command %q, type help", cmd)
	}
}

// cutWord splits s into its first whitespace-delimited word and the remainder,
// with leading whitespace removed from both.
func cutWord(s string) (word, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, usagef("expected on or off, got %q", s)
}
