package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare code", InvalidIndex, InvalidIndex},
		{"wrapped E", Wrap(InvalidValue, "set_degrees", "181"), InvalidValue},
		{"fmt wrapped E", fmt.Errorf("write: %w", Wrap(Halted, "write", "")), Halted},
		{"foreign", errors.New("boom"), Error},
	}

	for _, tt := range tests {
		if got := Of(tt.err); got != tt.want {
			t.Errorf("%s: Of() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestEIsCode(t *testing.T) {
	err := Wrap(InvalidIndex, "enable", "channel 9")
	if !errors.Is(err, InvalidIndex) {
		t.Errorf("errors.Is(%v, InvalidIndex) = false", err)
	}
	if errors.Is(err, InvalidValue) {
		t.Errorf("errors.Is(%v, InvalidValue) = true", err)
	}
	if got := err.Error(); got != "enable: invalid_index: channel 9" {
		t.Errorf("Error() = %q", got)
	}
}
