package permissions

import (
	"fmt"
	"strings"
	"sync"

	"github.com/heliumweb/helium/backend/internal/shared/types"
)

// GlobalScope is the override scope consulted after the per-extension one
const GlobalScope = "global"

// DefaultTolerance is the risk level auto-allowed when the caller does not
// specify one
const DefaultTolerance = types.RiskMedium

// Engine validates permission requests against the taxonomy, user
// overrides and the caller's risk tolerance. Safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	overrides map[string]map[string]bool // scope -> permission -> allowed
}

// NewEngine creates a risk engine with no configured overrides
func NewEngine() *Engine {
	return &Engine{
		overrides: make(map[string]map[string]bool),
	}
}

// Validate assesses every permission the extension requests.
// The assessment is ephemeral and recomputed on each call.
func (e *Engine) Validate(ext *types.Extension, tolerance types.RiskLevel) types.Assessment {
	requested := ext.Manifest.Permissions
	if len(requested) == 0 {
		return types.Assessment{
			Valid:       true,
			Allowed:     []types.AllowedPermission{},
			Blocked:     []types.BlockedPermission{},
			Warnings:    []types.CombinationWarning{},
			Suggestions: []types.Suggestion{},
			RiskLevel:   types.RiskNone,
			Score:       100,
		}
	}

	assessment := types.Assessment{
		Allowed:     []types.AllowedPermission{},
		Blocked:     []types.BlockedPermission{},
		Warnings:    []types.CombinationWarning{},
		Suggestions: []types.Suggestion{},
		Score:       100,
	}

	for _, name := range requested {
		info := lookup(name)

		allowed, reason := e.decide(ext.ID, info, tolerance)
		if allowed {
			assessment.Allowed = append(assessment.Allowed, types.AllowedPermission{
				Name:        info.Name,
				Category:    info.Category,
				Risk:        info.Risk,
				Description: info.Description,
			})
			continue
		}

		assessment.Blocked = append(assessment.Blocked, types.BlockedPermission{
			Name:     info.Name,
			Category: info.Category,
			Risk:     info.Risk,
			Reason:   reason,
		})
		// Not floor-clamped: a heavily blocked manifest can go negative
		assessment.Score -= scorePenalty[info.Risk]
	}

	assessment.Warnings = combinationWarnings(requested)
	assessment.RiskLevel = aggregateRisk(assessment.Allowed)
	assessment.Valid = len(assessment.Blocked) == 0
	assessment.Suggestions = suggestions(&assessment)

	return assessment
}

// decide applies override precedence then the tolerance comparison
func (e *Engine) decide(extensionID string, info types.PermissionInfo, tolerance types.RiskLevel) (bool, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, scope := range []string{extensionID, GlobalScope} {
		if scoped, ok := e.overrides[scope]; ok {
			if allowed, ok := scoped[info.Name]; ok {
				if allowed {
					return true, ""
				}
				return false, fmt.Sprintf("%s denied by user override", info.Name)
			}
		}
	}

	if info.Risk <= tolerance {
		return true, ""
	}
	return false, blockReason(info, tolerance)
}

// blockReason states how far the permission's risk exceeds tolerance
func blockReason(info types.PermissionInfo, tolerance types.RiskLevel) string {
	if info.Risk-tolerance >= 2 {
		return fmt.Sprintf("%s risk %s far exceeds %s tolerance", info.Name, info.Risk, tolerance)
	}
	return fmt.Sprintf("%s risk %s exceeds %s tolerance", info.Name, info.Risk, tolerance)
}

// combinationWarnings flags requested pairs from the combination table,
// order-independent, regardless of individual allow/block outcomes
func combinationWarnings(requested []string) []types.CombinationWarning {
	present := make(map[string]bool, len(requested))
	for _, name := range requested {
		present[name] = true
	}

	warnings := []types.CombinationWarning{}
	for _, combo := range combinations {
		if present[combo.a] && present[combo.b] {
			warnings = append(warnings, types.CombinationWarning{
				Permissions: []string{combo.a, combo.b},
				Severity:    combo.severity,
				Message:     combo.message,
			})
		}
	}
	return warnings
}

// aggregateRisk ranks the allowed set: critical if anything critical got
// through, then the high/medium 70%-of-maximum thresholds, else low.
func aggregateRisk(allowed []types.AllowedPermission) types.RiskLevel {
	var sum, highOrAbove int
	for _, perm := range allowed {
		if perm.Risk == types.RiskCritical {
			return types.RiskCritical
		}
		if perm.Risk >= types.RiskHigh {
			highOrAbove++
		}
		sum += int(perm.Risk)
	}

	n := len(allowed)
	if highOrAbove > 2 || float64(sum) > 0.7*float64(int(types.RiskHigh)*n) {
		return types.RiskHigh
	}
	if float64(sum) > 0.7*float64(int(types.RiskMedium)*n) {
		return types.RiskMedium
	}
	return types.RiskLow
}

func suggestions(a *types.Assessment) []types.Suggestion {
	out := []types.Suggestion{}

	if a.RiskLevel >= types.RiskHigh {
		out = append(out, types.Suggestion{
			Kind:    "risk_warning",
			Message: fmt.Sprintf("this extension's aggregate risk is %s; review it carefully before enabling", a.RiskLevel),
		})
	}

	if len(a.Blocked) > 0 {
		names := make([]string, len(a.Blocked))
		for i, b := range a.Blocked {
			names[i] = b.Name
		}
		out = append(out, types.Suggestion{
			Kind:        "blocked_permissions",
			Message:     fmt.Sprintf("%d permission(s) were blocked: %s", len(names), strings.Join(names, ", ")),
			Permissions: names,
		})
	}

	var sensitive []string
	for _, perm := range a.Allowed {
		if perm.Category == types.CategorySensitive {
			sensitive = append(sensitive, perm.Name)
		}
	}
	if len(sensitive) > 0 {
		out = append(out, types.Suggestion{
			Kind:        "sensitive_permissions",
			Message:     fmt.Sprintf("allowed permissions touch sensitive data: %s", strings.Join(sensitive, ", ")),
			Permissions: sensitive,
		})
	}

	return out
}

// UpdateUserSettings records explicit allow/deny markers for a scope
// (an extension id, or GlobalScope). Adding an allow marker replaces any
// deny marker for the same permission and vice versa.
func (e *Engine) UpdateUserSettings(scope string, permissions []string, allowed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	scoped, ok := e.overrides[scope]
	if !ok {
		scoped = make(map[string]bool)
		e.overrides[scope] = scoped
	}
	for _, name := range permissions {
		scoped[name] = allowed
	}
}

// ClearOverrides drops every marker for a scope
func (e *Engine) ClearOverrides(scope string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.overrides, scope)
}

// SnapshotOverrides encodes the override sets in marker form
// ("permission" for allow, "!permission" for deny) for persistence.
func (e *Engine) SnapshotOverrides() map[string][]string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string][]string, len(e.overrides))
	for scope, scoped := range e.overrides {
		markers := make([]string, 0, len(scoped))
		for name, allowed := range scoped {
			if allowed {
				markers = append(markers, name)
			} else {
				markers = append(markers, "!"+name)
			}
		}
		out[scope] = markers
	}
	return out
}

// RestoreOverrides replaces the override sets from marker form
func (e *Engine) RestoreOverrides(snapshot map[string][]string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.overrides = make(map[string]map[string]bool, len(snapshot))
	for scope, markers := range snapshot {
		scoped := make(map[string]bool, len(markers))
		for _, marker := range markers {
			if name, denied := strings.CutPrefix(marker, "!"); denied {
				scoped[name] = false
			} else {
				scoped[marker] = true
			}
		}
		e.overrides[scope] = scoped
	}
}

// Stats reports taxonomy totals and the number of configured overrides
func (e *Engine) Stats() types.PermissionStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := types.PermissionStats{
		TotalKnown: len(taxonomy),
		ByCategory: make(map[types.PermissionCategory]int),
		ByRisk:     make(map[string]int),
	}
	for _, info := range taxonomy {
		stats.ByCategory[info.Category]++
		stats.ByRisk[info.Risk.String()]++
	}
	for _, scoped := range e.overrides {
		stats.Overrides += len(scoped)
	}
	return stats
}
