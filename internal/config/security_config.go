package config

import (
	"net/netip"
	"strings"
	"time"
)

type SecurityConfig interface {
	GetJWTSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetMaxConsoleAge() time.Duration
	GetSignInAttempts() int
	GetEnableRateLimiting() bool
	GetSignInRatePerMinute() int
	GetTrustedProxies() []netip.Prefix
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetJWTSecret signs access tokens. The development default must be overridden in production.
func (Security) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "dev-only-secret-change-me")
}

func (Security) GetAccessTokenExpiry() time.Duration {
	return GetEnvDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour)
}

func (Security) GetRefreshTokenExpiry() time.Duration {
	return GetEnvDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour) // 7 days
}

// GetMaxConsoleAge is how long an idle browser console is kept before it is dropped
func (Security) GetMaxConsoleAge() time.Duration {
	return 12 * time.Hour
}

func (Security) GetSignInAttempts() int {
	return 3
}

func (Security) GetEnableRateLimiting() bool {
	return GetEnvBool("ENABLE_RATE_LIMITING", true)
}

func (Security) GetSignInRatePerMinute() int {
	return int(GetEnvInt64("SIGN_IN_RATE_PER_MINUTE", 20))
}

// GetTrustedProxies reads a comma separated TRUSTED_PROXIES list of addresses
// or CIDR ranges. Only requests arriving from these may set X-Forwarded-For.
func (Security) GetTrustedProxies() []netip.Prefix {
	var proxies []netip.Prefix
	for _, p := range strings.Split(GetEnv("TRUSTED_PROXIES", ""), ",") {
		p = strings.TrimSpace(p)
		if prefix, err := netip.ParsePrefix(p); err == nil {
			proxies = append(proxies, prefix.Masked())
		} else if addr, err := netip.ParseAddr(p); err == nil {
			proxies = append(proxies, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
		}
	}
	return proxies
}
