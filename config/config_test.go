package config

import (
	"strings"
	"testing"

	"servomux/core"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{}`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.I2CAddress != DefaultI2CAddress || cfg.Baud != DefaultBaud {
		t.Errorf("addr=0x%x baud=%d", cfg.I2CAddress, cfg.Baud)
	}
	if len(cfg.Channels) != core.NumChannels {
		t.Fatalf("%d channels, want %d", len(cfg.Channels), core.NumChannels)
	}
	pins, err := cfg.Pins()
	if err != nil {
		t.Fatalf("Pins failed: %v", err)
	}
	if pins != [core.NumChannels]core.GPIOPin{2, 3, 6, 7} {
		t.Errorf("default pins %v", pins)
	}
}

func TestLoadConfig(t *testing.T) {
	data := `{
		"I2CAddress": 66,
		"Channels": [
			{"Pin": "gpio10", "MinUS": 1000, "MaxUS": 2000, "PulseUS": 1500, "Enabled": true},
			{"Pin": "GP11"},
			{"Pin": "12", "Enabled": true},
			{"Pin": "gpio13"}
		]
	}`

	cfg, err := LoadConfig([]byte(data))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.I2CAddress != 66 {
		t.Errorf("I2CAddress = %d", cfg.I2CAddress)
	}
	if cfg.Channels[1].MinUS != core.DefaultMinUS || cfg.Channels[1].MaxUS != core.DefaultMaxUS {
		t.Errorf("channel 1 range not defaulted: %+v", cfg.Channels[1])
	}

	table := core.NewChannelTable()
	if err := cfg.Apply(table); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if minUS, maxUS, _ := table.Range(0); minUS != 1000 || maxUS != 2000 {
		t.Errorf("channel 0 range %d..%d", minUS, maxUS)
	}
	if us, _ := table.PulseWidthUS(0); us != 1496 {
		t.Errorf("channel 0 pulse %dus, want 1496", us)
	}
	for i, want := range []bool{true, false, true, false} {
		if on, _ := table.IsEnabled(uint8(i)); on != want {
			t.Errorf("channel %d enabled=%v, want %v", i, on, want)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*DeviceConfig)
		want   string
	}{
		{"address", func(c *DeviceConfig) { c.I2CAddress = 0x80 }, "i2c address"},
		{"channel count", func(c *DeviceConfig) { c.Channels = c.Channels[:2] }, "expected 4 channels"},
		{"pin name", func(c *DeviceConfig) { c.Channels[1].Pin = "pa7" }, "invalid pin name"},
		{"duplicate pin", func(c *DeviceConfig) { c.Channels[3].Pin = "gpio2" }, "already used"},
		{"range", func(c *DeviceConfig) { c.Channels[0].MinUS = 2500 }, "invalid pulse range"},
		{"pulse", func(c *DeviceConfig) { c.Channels[2].PulseUS = 3000 }, "pulse width out of range"},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.modify(cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err=%v, want %q", tt.name, err, tt.want)
		}
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfigBadJSON(t *testing.T) {
	if _, err := LoadConfig([]byte(`{"Baud": "fast"}`)); err == nil {
		t.Error("expected an error for a string baud rate")
	}
}

func TestParsePin(t *testing.T) {
	for name, want := range map[string]core.GPIOPin{"gpio0": 0, "GPIO25": 25, "gp7": 7, " 3 ": 3} {
		got, err := ParsePin(name)
		if err != nil || got != want {
			t.Errorf("ParsePin(%q) = %d, %v; want %d", name, got, err, want)
		}
	}
	for _, name := range []string{"", "gpio", "led", "gpio300"} {
		if _, err := ParsePin(name); err == nil {
			t.Errorf("ParsePin(%q) should fail", name)
		}
	}
}
