package isolation

import "github.com/heliumweb/helium/backend/internal/shared/types"

// Restriction entries name the risk classes a session blocks, plus the
// messaging capabilities strict mode disables unconditionally.
const (
	RestrictCriticalRisk       = "critical-risk"
	RestrictHighRisk           = "high-risk"
	RestrictMediumRisk         = "medium-risk"
	RestrictNativeMessaging    = "native-messaging"
	RestrictExtensionMessaging = "extension-messaging"
)

// Config maps isolation levels to their restriction sets
type Config struct {
	Restrictions map[types.IsolationLevel][]string
	DefaultLevel types.IsolationLevel
}

// DefaultConfig returns the built-in level mapping:
// none blocks nothing, relaxed blocks critical-risk capabilities, standard
// blocks high and critical, strict blocks everything above low and always
// disables both messaging surfaces.
func DefaultConfig() Config {
	return Config{
		DefaultLevel: types.IsolationStandard,
		Restrictions: map[types.IsolationLevel][]string{
			types.IsolationNone:    {},
			types.IsolationRelaxed: {RestrictCriticalRisk},
			types.IsolationStandard: {
				RestrictHighRisk,
				RestrictCriticalRisk,
			},
			types.IsolationStrict: {
				RestrictMediumRisk,
				RestrictHighRisk,
				RestrictCriticalRisk,
				RestrictNativeMessaging,
				RestrictExtensionMessaging,
			},
		},
	}
}

// clone deep-copies a config so callers never share restriction slices
func (c Config) clone() Config {
	out := Config{
		DefaultLevel: c.DefaultLevel,
		Restrictions: make(map[types.IsolationLevel][]string, len(c.Restrictions)),
	}
	for level, restrictions := range c.Restrictions {
		out.Restrictions[level] = append([]string(nil), restrictions...)
	}
	return out
}
