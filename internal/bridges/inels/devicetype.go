package inels

// DeviceType is the category of an iNels device.
//
// The set is closed: every switch over DeviceType in this package ends in
// a default branch that rejects unknown values with ErrUnsupportedDevice.
type DeviceType string

// Known device types.
const (
	DeviceTypeSwitch  DeviceType = "switch"
	DeviceTypeCover   DeviceType = "cover"
	DeviceTypeLight   DeviceType = "light"
	DeviceTypeClimate DeviceType = "climate"
	DeviceTypeSensor  DeviceType = "sensor"
	DeviceTypeButton  DeviceType = "button"
)

// TypeCode is the two-character device type fragment of an iNels topic.
type TypeCode string

// Known device type codes.
const (
	TypeCodeSwitch  TypeCode = "02"
	TypeCodeCover   TypeCode = "03"
	TypeCodeLight   TypeCode = "05"
	TypeCodeClimate TypeCode = "09"
	TypeCodeSensor  TypeCode = "10"
	TypeCodeButton  TypeCode = "19"
)

// Model is a specific iNels product within a device type.
type Model string

// Supported models.
const (
	ModelRFSC61   Model = "RFSC-61"   // switching actuator
	ModelRFJA12   Model = "RFJA-12"   // shutter actuator
	ModelRFDAC71B Model = "RFDAC-71B" // dimmer
	ModelRFATV2   Model = "RFATV-2"   // thermostatic head
	ModelRFTI10B  Model = "RFTI-10B"  // temperature sensor
	ModelRFGB40   Model = "RFGB-40"   // glass button
)

// typeCodes maps each known topic code to its device type.
var typeCodes = map[TypeCode]DeviceType{
	TypeCodeSwitch:  DeviceTypeSwitch,
	TypeCodeCover:   DeviceTypeCover,
	TypeCodeLight:   DeviceTypeLight,
	TypeCodeClimate: DeviceTypeClimate,
	TypeCodeSensor:  DeviceTypeSensor,
	TypeCodeButton:  DeviceTypeButton,
}

// defaultModels is the model assumed for each code when no override is
// configured. Each code currently has a single supported model.
var defaultModels = map[TypeCode]Model{
	TypeCodeSwitch:  ModelRFSC61,
	TypeCodeCover:   ModelRFJA12,
	TypeCodeLight:   ModelRFDAC71B,
	TypeCodeClimate: ModelRFATV2,
	TypeCodeSensor:  ModelRFTI10B,
	TypeCodeButton:  ModelRFGB40,
}

// DeviceTypeForCode returns the device type for a topic type code.
func DeviceTypeForCode(code TypeCode) (DeviceType, bool) {
	t, ok := typeCodes[code]
	return t, ok
}

// DefaultModel returns the model assumed for a topic type code.
func DefaultModel(code TypeCode) (Model, bool) {
	m, ok := defaultModels[code]
	return m, ok
}

// IsValid reports whether t is one of the known device types.
func (t DeviceType) IsValid() bool {
	switch t {
	case DeviceTypeSwitch, DeviceTypeCover, DeviceTypeLight,
		DeviceTypeClimate, DeviceTypeSensor, DeviceTypeButton:
		return true
	default:
		return false
	}
}

// ReadOnly reports whether devices of this type accept no commands.
func (t DeviceType) ReadOnly() bool {
	return t == DeviceTypeSensor || t == DeviceTypeButton
}

// Capabilities lists the platform capabilities a device type exposes.
func (t DeviceType) Capabilities() []string {
	switch t {
	case DeviceTypeSwitch:
		return []string{"on_off"}
	case DeviceTypeLight:
		return []string{"on_off", "dim"}
	case DeviceTypeCover:
		return []string{"open_close", "stop"}
	case DeviceTypeClimate:
		return []string{"temperature_read", "temperature_set", "battery"}
	case DeviceTypeSensor:
		return []string{"temperature_read", "battery"}
	case DeviceTypeButton:
		return []string{"press"}
	default:
		return nil
	}
}
