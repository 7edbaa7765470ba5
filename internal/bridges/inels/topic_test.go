package inels

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		topic  string
		want   DeviceType
		wantOK bool
	}{
		{"inels/status/4254524524/02/452454", DeviceTypeSwitch, true},
		{"inels/status/4254524524/03/452454", DeviceTypeCover, true},
		{"inels/status/4254524524/05/452454", DeviceTypeLight, true},
		{"inels/status/4254524524/09/452454", DeviceTypeClimate, true},
		{"inels/status/4254524524/10/452454", DeviceTypeSensor, true},
		{"inels/status/4254524524/19/452454", DeviceTypeButton, true},
		{"inels/set/4254524524/02/452454", DeviceTypeSwitch, true},
		{"inels/connected/4254524524/02/452454", DeviceTypeSwitch, true},
		{"inels/status/4254524524/77/452454", "", false},
		{"some/kind/of/different/topic", "", false},
		{"some/kind/of/different/topic/in/broker", "", false},
		{"inels/status/4254524524", "", false},
		{"inels/status//02/452454", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := Classify(tt.topic)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Classify(%q) = %q, %v, want %q, %v", tt.topic, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseTopic(t *testing.T) {
	got, err := ParseTopic("inels/status/4254524524/02/452454")
	if err != nil {
		t.Fatalf("ParseTopic() error: %v", err)
	}
	want := Topic{
		Domain:       "inels",
		Kind:         KindStatus,
		SerialNumber: "4254524524",
		TypeCode:     TypeCodeSwitch,
		UniqueID:     "452454",
	}
	if got != want {
		t.Errorf("ParseTopic() = %+v, want %+v", got, want)
	}
	if got.String() != "inels/status/4254524524/02/452454" {
		t.Errorf("String() = %q", got.String())
	}
	if got.DeviceID() != "4254524524-452454" {
		t.Errorf("DeviceID() = %q, want %q", got.DeviceID(), "4254524524-452454")
	}
}

func TestParseTopicErrors(t *testing.T) {
	for _, topic := range []string{
		"inels/status/4254524524/02",
		"inels/unknown/4254524524/02/452454",
		"inels/status/4254524524/02/452454/extra",
		"/status/4254524524/02/452454",
	} {
		if _, err := ParseTopic(topic); !errors.Is(err, ErrUnrecognizedTopic) {
			t.Errorf("ParseTopic(%q) error = %v, want ErrUnrecognizedTopic", topic, err)
		}
	}
}

func TestTopicWithKind(t *testing.T) {
	status, err := ParseTopic("inels/status/4254524524/03/452454")
	if err != nil {
		t.Fatalf("ParseTopic() error: %v", err)
	}
	set := status.WithKind(KindSet)
	if set.String() != "inels/set/4254524524/03/452454" {
		t.Errorf("WithKind(set) = %q", set.String())
	}
	if status.Kind != KindStatus {
		t.Error("WithKind modified the receiver")
	}
}

func TestFilters(t *testing.T) {
	if got := StatusFilter("inels"); got != "inels/status/#" {
		t.Errorf("StatusFilter() = %q", got)
	}
	if got := ConnectedFilter("inels"); got != "inels/connected/#" {
		t.Errorf("ConnectedFilter() = %q", got)
	}
}

func TestDefaultModel(t *testing.T) {
	tests := []struct {
		code TypeCode
		want Model
	}{
		{TypeCodeSwitch, ModelRFSC61},
		{TypeCodeCover, ModelRFJA12},
		{TypeCodeLight, ModelRFDAC71B},
		{TypeCodeClimate, ModelRFATV2},
		{TypeCodeSensor, ModelRFTI10B},
		{TypeCodeButton, ModelRFGB40},
	}
	for _, tt := range tests {
		if got, ok := DefaultModel(tt.code); !ok || got != tt.want {
			t.Errorf("DefaultModel(%q) = %q, %v, want %q", tt.code, got, ok, tt.want)
		}
	}
	if _, ok := DefaultModel("99"); ok {
		t.Error("DefaultModel(99) ok = true, want false")
	}
}
