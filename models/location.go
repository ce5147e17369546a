package models

import "strings"

// ModuleId identifies one of the five physical stock-keeping locations.
// Each module owns its own stock collection(s); see stockItem.go.
type ModuleId string

const (
	ModuleCentralKitchen ModuleId = "central-kitchen"
	ModuleKuwaitCity     ModuleId = "kuwait-city"
	ModuleVibeComplex    ModuleId = "vibe-complex"
	ModuleMall360        ModuleId = "mall-360"
	ModuleTaibaKitchen   ModuleId = "taiba-kitchen"
)

// AllModules lists every known module. Order is stable for reports.
func AllModules() []ModuleId {
	return []ModuleId{
		ModuleCentralKitchen,
		ModuleKuwaitCity,
		ModuleVibeComplex,
		ModuleMall360,
		ModuleTaibaKitchen,
	}
}

type LocationRule struct {
	Pattern string
	Module  ModuleId
}

// LocationTable maps free-text bill location names to modules.
// Iteration order is part of the contract: on the fuzzy fallback the first
// matching rule wins, so more specific patterns must come first.
type LocationTable []LocationRule

// DefaultLocationTable returns the mapping for the currently deployed
// locations, including the casing variants seen in vendor bills.
// Keep this in sync with physical locations.
func DefaultLocationTable() LocationTable {
	return LocationTable{
		{Pattern: "TLB Central Kitchen", Module: ModuleCentralKitchen},
		{Pattern: "TLB CENTRAL KITCHEN", Module: ModuleCentralKitchen},
		{Pattern: "Central Kitchen", Module: ModuleCentralKitchen},
		{Pattern: "central kitchen", Module: ModuleCentralKitchen},
		{Pattern: "Taiba Kitchen", Module: ModuleTaibaKitchen},
		{Pattern: "TAIBA KITCHEN", Module: ModuleTaibaKitchen},
		{Pattern: "Taiba kitchen", Module: ModuleTaibaKitchen},
		{Pattern: "Kuwait City", Module: ModuleKuwaitCity},
		{Pattern: "KUWAIT CITY", Module: ModuleKuwaitCity},
		{Pattern: "kuwait city", Module: ModuleKuwaitCity},
		{Pattern: "Vibe Complex", Module: ModuleVibeComplex},
		{Pattern: "VIBE COMPLEX", Module: ModuleVibeComplex},
		{Pattern: "Vibes Complex", Module: ModuleVibeComplex},
		{Pattern: "Mall 360", Module: ModuleMall360},
		{Pattern: "MALL 360", Module: ModuleMall360},
		{Pattern: "360 Mall", Module: ModuleMall360},
		{Pattern: "Mall360", Module: ModuleMall360},
	}
}

// Resolve maps a bill's location name to a module.
// Exact match is tried first; failing that, a case-insensitive trimmed
// substring match in either direction, first rule wins. A miss is a valid
// "unroutable" outcome, not an error.
func (t LocationTable) Resolve(locationName string) (ModuleId, bool) {
	for _, rule := range t {
		if rule.Pattern == locationName {
			return rule.Module, true
		}
	}

	needle := strings.ToLower(strings.TrimSpace(locationName))
	if needle == "" {
		return "", false
	}
	for _, rule := range t {
		pattern := strings.ToLower(strings.TrimSpace(rule.Pattern))
		if strings.Contains(needle, pattern) || strings.Contains(pattern, needle) {
			return rule.Module, true
		}
	}
	return "", false
}
