package config

import (
	"testing"
	"time"
)

func TestGetEnvString(t *testing.T) {
	t.Setenv("TEST_STR", "value")
	if got := GetEnvString("TEST_STR", "default"); got != "value" {
		t.Errorf("GetEnvString() = %q, want %q", got, "value")
	}
	if got := GetEnvString("TEST_STR_UNSET", "default"); got != "default" {
		t.Errorf("GetEnvString() = %q, want %q", got, "default")
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"valid", "42", 42},
		{"negative", "-7", -7},
		{"invalid falls back", "not-a-number", 10},
		{"empty falls back", "", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.value)
			if got := GetEnvInt("TEST_INT", 10); got != tt.want {
				t.Errorf("GetEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvFloat32(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.7")
	if got := GetEnvFloat32("TEST_FLOAT", 0.5); got != 0.7 {
		t.Errorf("GetEnvFloat32() = %v, want 0.7", got)
	}
	t.Setenv("TEST_FLOAT", "abc")
	if got := GetEnvFloat32("TEST_FLOAT", 0.5); got != 0.5 {
		t.Errorf("GetEnvFloat32() = %v, want fallback 0.5", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"0", false},
		{"maybe", true}, // invalid, falls back to default true
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			if got := GetEnvBool("TEST_BOOL", true); got != tt.want {
				t.Errorf("GetEnvBool(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "90s")
	if got := GetEnvDuration("TEST_DUR", time.Minute); got != 90*time.Second {
		t.Errorf("GetEnvDuration() = %v, want 90s", got)
	}
	t.Setenv("TEST_DUR", "ninety seconds")
	if got := GetEnvDuration("TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("GetEnvDuration() = %v, want fallback 1m", got)
	}
}

func TestGetEnvStringList(t *testing.T) {
	t.Setenv("TEST_LIST", " 10.0.0.1 , 10.0.0.2,,  ")
	got := GetEnvStringList("TEST_LIST", nil)
	want := []string{"10.0.0.1", "10.0.0.2"}
	if len(got) != len(want) {
		t.Fatalf("GetEnvStringList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %q, want %q", i, got[i], want[i])
		}
	}

	t.Setenv("TEST_LIST", " , ,")
	fallback := []string{"default"}
	if got := GetEnvStringList("TEST_LIST", fallback); len(got) != 1 || got[0] != "default" {
		t.Errorf("GetEnvStringList() = %v, want fallback %v", got, fallback)
	}
}

func TestValidatePositiveDuration(t *testing.T) {
	if err := ValidatePositiveDuration(time.Second); err != nil {
		t.Errorf("ValidatePositiveDuration(1s) = %v, want nil", err)
	}
	if err := ValidatePositiveDuration(0); err == nil {
		t.Error("ValidatePositiveDuration(0) = nil, want error")
	}
	if err := ValidatePositiveDuration(-time.Second); err == nil {
		t.Error("ValidatePositiveDuration(-1s) = nil, want error")
	}
}
