package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-inels/internal/bridges/inels"
)

// TranslateRequest is the body of POST /translate. Exactly one of Status
// and Value must be set.
type TranslateRequest struct {
	Type  inels.DeviceType `json:"type"`
	Model string           `json:"model,omitempty"`

	// Status is a raw status payload, e.g. "01\n".
	Status *string `json:"status,omitempty"`

	// Value is a semantic value: a bool for switches, a percentage for
	// lights, a cover state string, a climate object or target temperature,
	// or the raw payload for sensors and buttons.
	Value json.RawMessage `json:"value,omitempty"`

	// Previous is the device's last known semantic value, in the same form as Value.
	Previous json.RawMessage `json:"previous,omitempty"`
}

// TranslateResponse carries every side of the translated value.
type TranslateResponse struct {
	Type       inels.DeviceType `json:"type"`
	Model      inels.Model      `json:"model"`
	Status     *string          `json:"status,omitempty"`
	Value      any              `json:"value"`
	State      map[string]any   `json:"state"`
	SetPayload *string          `json:"set_payload,omitempty"`
	FellBack   bool             `json:"fell_back"`
}

// handleTranslate runs the value translator without touching any device.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if !readJSONBody(w, r, &req) {
		return
	}
	if !req.Type.IsValid() {
		writeBadRequest(w, "unknown device type")
		return
	}

	in := inels.Input{
		Type:  req.Type,
		Model: inels.ParseModel(req.Model),
	}
	if req.Status != nil {
		in.Status = append([]byte{}, *req.Status...)
	}

	var err error
	if in.Semantic, err = decodeSemantic(req.Type, req.Value); err != nil {
		writeBadRequest(w, "invalid value")
		return
	}
	if in.Previous, err = decodeSemantic(req.Type, req.Previous); err != nil {
		writeBadRequest(w, "invalid previous value")
		return
	}

	v, err := s.translator.Translate(in)
	if err != nil {
		writeTranslateError(w, err)
		return
	}

	resp := TranslateResponse{
		Type:     v.Type(),
		Model:    v.Model(),
		Value:    v.Semantic(),
		State:    v.State(),
		FellBack: v.FellBack(),
	}
	if status, ok := v.Status(); ok {
		resp.Status = &status
	}
	if set, ok := v.SetPayload(); ok {
		resp.SetPayload = &set
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeSemantic turns a JSON value into the Go form the translator
// expects for t. Absent and null values decode to nil.
func decodeSemantic(t inels.DeviceType, raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if t == inels.DeviceTypeClimate && trimmed[0] == '{' {
		var c inels.Climate
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return nil, err
		}
		return c, nil
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// writeTranslateError maps translator errors to HTTP responses.
func writeTranslateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inels.ErrInvalidInput),
		errors.Is(err, inels.ErrMalformedPayload):
		writeBadRequest(w, err.Error())
	case errors.Is(err, inels.ErrUnsupportedDevice):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, inels.ErrUnsupportedValue):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeUnsupportedValue, err.Error())
	default:
		writeInternalError(w, "translation failed")
	}
}
