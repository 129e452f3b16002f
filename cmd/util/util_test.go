package util

import (
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/viper"
	"reflect"
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("line exceeds %d characters: %q", Wrap, line)
		}
	}
	if got := WrapString("short text"); got != "short text" {
		t.Errorf("short text changed: %q", got)
	}
}

func TestGetClientConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("endpoints", "127.0.0.1:3000, 127.0.0.1:3001,,")
	viper.Set("timeout", 250)
	viper.Set("retries", 5)

	conf := GetClientConfig()
	if want := []string{"127.0.0.1:3000", "127.0.0.1:3001"}; !reflect.DeepEqual(conf.Endpoints, want) {
		t.Errorf("endpoints: got %v, want %v", conf.Endpoints, want)
	}
	if conf.TimeoutMillisecond != 250 || conf.RetryCount != 5 {
		t.Errorf("unexpected config %+v", conf)
	}
}

func TestGetTransport(t *testing.T) {
	t.Cleanup(viper.Reset)

	for _, name := range []string{"udp", "unixgram"} {
		viper.Set("transport", name)
		if _, err := GetClientTransport(nil); err != nil {
			t.Errorf("client transport %s: %v", name, err)
		}
		if _, err := GetServerTransport(nil, metrics.NewSet()); err != nil {
			t.Errorf("server transport %s: %v", name, err)
		}
	}

	viper.Set("transport", "tcp")
	if _, err := GetClientTransport(nil); err == nil {
		t.Error("expected error for unsupported transport")
	}
	if _, err := GetServerTransport(nil, metrics.NewSet()); err == nil {
		t.Error("expected error for unsupported transport")
	}
}
