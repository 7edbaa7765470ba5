package inels

import (
	"errors"
	"fmt"
	"strings"
)

// Command names accepted from Core.
const (
	CommandOn             = "on"
	CommandOff            = "off"
	CommandToggle         = "toggle"
	CommandDim            = "dim"
	CommandOpen           = "open"
	CommandClose          = "close"
	CommandStop           = "stop"
	CommandSetTemperature = "set_temperature"
)

// Command parameter names.
const (
	ParamLevel       = "level"
	ParamDirection   = "direction"
	ParamTemperature = "temperature"
)

// errInvalidParameters marks command parameter problems so they can be
// acked with ErrCodeInvalidParameters.
var errInvalidParameters = errors.New("inels: invalid parameters")

// errInvalidCommand marks commands that do not apply to a device type.
var errInvalidCommand = errors.New("inels: invalid command")

// commandSemantic maps a Core command to the semantic value the device
// should take. previous is the device's last known semantic value and is
// used by toggle and by stop when no direction is given.
func commandSemantic(t DeviceType, cmd CommandMessage, previous any) (any, error) {
	if t.ReadOnly() {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, t)
	}

	switch t {
	case DeviceTypeSwitch:
		return switchCommand(cmd, previous)

	case DeviceTypeLight:
		switch cmd.Command {
		case CommandOn:
			return 100, nil
		case CommandOff:
			return 0, nil
		case CommandToggle:
			if level, ok := asLevel(previous); ok && level > 0 {
				return 0, nil
			}
			return 100, nil
		case CommandDim:
			level, ok := asFloat(cmd.Parameters[ParamLevel])
			if !ok {
				return nil, fmt.Errorf("%w: dim requires numeric %q", errInvalidParameters, ParamLevel)
			}
			if level < 0 || level > 100 {
				return nil, fmt.Errorf("%w: level %v out of range 0-100", errInvalidParameters, level)
			}
			return level, nil
		}

	case DeviceTypeCover:
		switch cmd.Command {
		case CommandOpen:
			return CoverOpen, nil
		case CommandClose:
			return CoverClosed, nil
		case CommandStop:
			return stopTarget(cmd, previous)
		}

	case DeviceTypeClimate:
		if cmd.Command == CommandSetTemperature {
			temp, ok := asFloat(cmd.Parameters[ParamTemperature])
			if !ok {
				return nil, fmt.Errorf("%w: set_temperature requires numeric %q", errInvalidParameters, ParamTemperature)
			}
			return temp, nil
		}

	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnsupportedDevice, t)
	}

	return nil, fmt.Errorf("%w: %q is not valid for %s", errInvalidCommand, cmd.Command, t)
}

func switchCommand(cmd CommandMessage, previous any) (any, error) {
	switch cmd.Command {
	case CommandOn:
		return true, nil
	case CommandOff:
		return false, nil
	case CommandToggle:
		on, _ := asBool(previous)
		return !on, nil
	default:
		return nil, fmt.Errorf("%w: %q is not valid for switch", errInvalidCommand, cmd.Command)
	}
}

// stopTarget picks the stop command. An explicit direction wins; otherwise
// a shutter last seen open is assumed to be closing and vice versa.
func stopTarget(cmd CommandMessage, previous any) (CoverState, error) {
	if dir, ok := cmd.Parameters[ParamDirection].(string); ok {
		switch strings.ToLower(dir) {
		case "down":
			return CoverStopDown, nil
		case "up":
			return CoverStopUp, nil
		default:
			return "", fmt.Errorf("%w: direction %q must be up or down", errInvalidParameters, dir)
		}
	}
	if state, ok := asCoverState(previous); ok && state == CoverClosed {
		return CoverStopUp, nil
	}
	return CoverStopDown, nil
}
