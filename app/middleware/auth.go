package appMiddleware

import (
	"path"
	"strings"

	"github.com/FACorreiaa/easystock/config"
)

// RouteClass is how the guard treats a request path.
type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteProtected
	RouteAuthOnly
)

// RoutePolicy classifies page paths. Prefixes match whole segments, so
// "/dashboard" covers "/dashboard/products" but not "/dashboards".
type RoutePolicy struct {
	Protected        []string
	AuthOnly         []string
	AdminPrefix      string
	ExcludedPrefixes []string
	Landing          string
	SignIn           string
	SignInMessage    string
}

func RoutePolicyFromConfig(cfg *config.Config) RoutePolicy {
	return RoutePolicy{
		Protected:        cfg.Guard.ProtectedRoutes,
		AuthOnly:         cfg.Guard.AuthRoutes,
		AdminPrefix:      cfg.Guard.AdminPrefix,
		ExcludedPrefixes: cfg.Guard.ExcludedPrefixes,
		Landing:          cfg.Auth.Paths.Landing,
		SignIn:           cfg.Auth.Paths.SignIn,
		SignInMessage:    cfg.Guard.SignInMessage,
	}
}

func hasSegmentPrefix(p, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return false
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func matchesAny(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if hasSegmentPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Excluded reports whether the guard must pass p through untouched:
// internal asset and API prefixes, and anything that looks like a file.
func (rp RoutePolicy) Excluded(p string) bool {
	if matchesAny(p, rp.ExcludedPrefixes) {
		return true
	}
	return strings.Contains(path.Base(p), ".")
}

func (rp RoutePolicy) Classify(p string) RouteClass {
	switch {
	case matchesAny(p, rp.Protected):
		return RouteProtected
	case matchesAny(p, rp.AuthOnly):
		return RouteAuthOnly
	default:
		return RoutePublic
	}
}

func (rp RoutePolicy) IsAdmin(p string) bool {
	return hasSegmentPrefix(p, rp.AdminPrefix)
}
