package util

import (
	"path/filepath"
	"testing"
)

type testConfig struct {
	Addr     string `yaml:"addr"`
	TickRate int    `yaml:"tick_rate"`
}

func Test_Config(t *testing.T) {

	path := filepath.Join(t.TempDir(), "client.yaml")

	saved := testConfig{Addr: "127.0.0.1:10086", TickRate: 30}
	if err := SaveConfig(path, &saved); nil != err {
		t.Fatal(err)
	}

	loaded := testConfig{}
	if err := LoadConfig(path, &loaded); nil != err {
		t.Fatal(err)
	}

	if loaded != saved {
		t.Error("loaded != saved")
	}

	if err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), &loaded); nil == err {
		t.Error("missing file did not error")
	}
}
