package core

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// registry holds every compiled-in module, filled from init() functions.
var registry = struct {
	sync.RWMutex
	byID map[ModuleID]ModuleInfo
}{byID: make(map[ModuleID]ModuleInfo)}

// RegisterModule records a module under the ID reported by its ModuleInfo.
// IDs must have the "<namespace>.<name>" form. It panics on an invalid or
// duplicate registration; call it from init().
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if info.ID.Namespace() == "" || info.ID.Name() == string(info.ID) || info.ID.Name() == "" {
		panic(fmt.Sprintf("module ID %q must have the form <namespace>.<name>", info.ID))
	}
	if info.New == nil {
		panic(fmt.Sprintf("module %s: New function must not be nil", info.ID))
	}

	registry.Lock()
	defer registry.Unlock()

	if _, exists := registry.byID[info.ID]; exists {
		panic(fmt.Sprintf("module already registered: %s", info.ID))
	}
	registry.byID[info.ID] = info
}

// GetModule returns the ModuleInfo for the given ID, or false if not found.
func GetModule(id string) (ModuleInfo, bool) {
	registry.RLock()
	defer registry.RUnlock()
	info, ok := registry.byID[ModuleID(id)]
	return info, ok
}

// GetModules returns all registered modules sorted by ID.
func GetModules() []ModuleInfo {
	return collect(func(ModuleID) bool { return true })
}

// GetModulesByNamespace returns the modules of one namespace sorted by ID,
// e.g. "provider" matches "provider.anthropic" and "provider.openai_compatible".
func GetModulesByNamespace(namespace string) []ModuleInfo {
	return collect(func(id ModuleID) bool { return id.Namespace() == namespace })
}

func collect(keep func(ModuleID) bool) []ModuleInfo {
	registry.RLock()
	result := make([]ModuleInfo, 0, len(registry.byID))
	for id, info := range registry.byID {
		if keep(id) {
			result = append(result, info)
		}
	}
	registry.RUnlock()

	slices.SortFunc(result, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	registry.Lock()
	defer registry.Unlock()
	registry.byID = make(map[ModuleID]ModuleInfo)
}
