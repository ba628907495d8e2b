package config

import "testing"

func TestGetEnvDefault(t *testing.T) {
	if got := getEnv("MERIDIAN_UNSET_KEY", "fallback"); got != "fallback" {
		t.Errorf("getEnv = %q, want fallback", got)
	}

	t.Setenv("MERIDIAN_SET_KEY", "value")
	if got := getEnv("MERIDIAN_SET_KEY", "fallback"); got != "value" {
		t.Errorf("getEnv = %q, want value", got)
	}
}

func TestDBConfigDSN(t *testing.T) {
	c := DBConfig{
		Host:     "db",
		Port:     "5432",
		User:     "pos",
		Password: "secret",
		Name:     "meridian_pos",
		SSLMode:  "disable",
	}
	want := "host=db port=5432 user=pos password=secret dbname=meridian_pos sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
