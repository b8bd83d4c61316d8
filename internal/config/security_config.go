package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps route templates to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Infrastructure - Public
	"/healthz":   SecurityPublic,
	"/metrics":   SecurityPublic,
	"/ws/events": SecurityPublic,

	// Rides - Public browse
	"GET /api/v1/rides":      SecurityPublic,
	"GET /api/v1/rides/{id}": SecurityPublic,

	// Stats - Public
	"GET /api/v1/stats": SecurityPublic,
}

// GetSecurityLevel returns the security level for a method and route template.
// Entries may be keyed by template alone or by "METHOD template".
func GetSecurityLevel(method, route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method+" "+route]; exists {
		return level
	}
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
