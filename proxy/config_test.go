package proxy

import (
	"errors"
	"testing"
)

func TestConfigValidateRequiresDistinctPorts(t *testing.T) {
	cfg := Config{ProxyPort: 8080, TunnelPort: 8080}
	if err := cfg.validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("validate() = %v, want ErrConfigInvalid", err)
	}
}

func TestConfigValidateRequiresBothPorts(t *testing.T) {
	cfg := Config{ProxyPort: 8080}
	if err := cfg.validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("validate() = %v, want ErrConfigInvalid", err)
	}
}

func TestConfigValidateRequiresMatchedTLSPair(t *testing.T) {
	cfg := Config{ProxyPort: 8080, TunnelPort: 8081, TLSCert: []byte("cert")}
	if err := cfg.validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("validate() = %v, want ErrConfigInvalid for cert without key", err)
	}
}

func TestConfigValidateFillsTimeoutDefaults(t *testing.T) {
	cfg := Config{ProxyPort: 8080, TunnelPort: 8081}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate() returned error: %s", err)
	}
	if cfg.ChallengeTimeout != defaultChallengeTimeout {
		t.Errorf("ChallengeTimeout = %s, want %s", cfg.ChallengeTimeout, defaultChallengeTimeout)
	}
	if cfg.RequestTimeout != defaultRequestTimeout {
		t.Errorf("RequestTimeout = %s, want %s", cfg.RequestTimeout, defaultRequestTimeout)
	}
}

func TestConfigValidateRejectsPartialEncryption(t *testing.T) {
	cfg := Config{ProxyPort: 8080, TunnelPort: 8081}
	cfg.Encryption.Key = make([]byte, 32)
	if err := cfg.validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("validate() = %v, want ErrConfigInvalid for a key with no cipher/iv", err)
	}
}
