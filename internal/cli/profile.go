package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-airtable/airtable"
)

// EnvBaseID names the environment variable holding the default base id.
const EnvBaseID = "AIRTABLE_BASE_ID"

// Profile is the YAML connection file passed with --config.
//
//	api_key: pat123
//	endpoint_url: https://api.airtable.com
//	base: appXXXXXXXXXXXXXX
//	request_timeout: 30s
type Profile struct {
	ApiKey               string        `yaml:"api_key"`
	EndpointUrl          string        `yaml:"endpoint_url"`
	ApiVersion           string        `yaml:"api_version"`
	Base                 string        `yaml:"base"`
	RequestTimeout       time.Duration `yaml:"request_timeout"`
	NoRetryIfRateLimited bool          `yaml:"no_retry_if_rate_limited"`
	MaxRateLimitRetries  int           `yaml:"max_rate_limit_retries"`
	RequestsPerSecond    float64       `yaml:"requests_per_second"`
}

// LoadProfile reads a profile from path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &profile, nil
}

// Config converts the profile into a client config. Empty values are left
// for the client to resolve from the environment.
func (p *Profile) Config() *airtable.Config {
	config := &airtable.Config{
		ApiKey:               p.ApiKey,
		EndpointUrl:          p.EndpointUrl,
		ApiVersion:           p.ApiVersion,
		NoRetryIfRateLimited: p.NoRetryIfRateLimited,
		MaxRateLimitRetries:  p.MaxRateLimitRetries,
		RequestsPerSecond:    p.RequestsPerSecond,
	}
	if p.RequestTimeout > 0 {
		timeout := p.RequestTimeout
		config.RequestTimeout = &timeout
	}
	return config
}
