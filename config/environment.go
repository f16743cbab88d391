package config

import (
	"os"
	"strings"
)

// Environment is the deployment-environment flag. It selects which optional
// pipeline stages and logging defaults are active.
type Environment string

const (
	// EnvironmentProduction enables HSTS and JSON logs.
	EnvironmentProduction Environment = "Production"
	// EnvironmentDevelopment enables the API documentation UI and console logs.
	EnvironmentDevelopment Environment = "Development"
)

// EnvironmentVariable names the variable holding the deployment environment.
// FallbackEnvironmentVariable is consulted when it is unset.
const (
	EnvironmentVariable         = "JATRACKR_ENVIRONMENT"
	FallbackEnvironmentVariable = "ENVIRONMENT"
)

// ParseEnvironment maps a name to an Environment. Well-known names are matched
// case-insensitively ("prod" and "dev" included); any other non-empty name is
// kept verbatim and is neither production nor development. An empty name means
// production.
func ParseEnvironment(name string) Environment {
	name = strings.TrimSpace(name)
	switch strings.ToLower(name) {
	case "", "production", "prod":
		return EnvironmentProduction
	case "development", "dev":
		return EnvironmentDevelopment
	default:
		return Environment(name)
	}
}

// ResolveEnvironment reads the deployment environment from the process
// environment.
func ResolveEnvironment() Environment {
	if name, ok := os.LookupEnv(EnvironmentVariable); ok && strings.TrimSpace(name) != "" {
		return ParseEnvironment(name)
	}
	return ParseEnvironment(os.Getenv(FallbackEnvironmentVariable))
}

// String returns the environment name.
func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool {
	return e == EnvironmentProduction
}

// IsDevelopment reports whether e is the development environment.
func (e Environment) IsDevelopment() bool {
	return e == EnvironmentDevelopment
}
