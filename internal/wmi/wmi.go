// Package wmi executes Windows Management Instrumentation queries over
// COM/OLE. The licensing inventory reads SoftwareLicensingProduct through
// Query; platform identification reads registry values through the
// StdRegProv helpers.
//
// On non-Windows platforms every entry point returns an error.
package wmi

import (
	"context"
	"fmt"
	"runtime"
)

// QueryResult represents a single WMI object as a map of property names to
// converted Go values.
type QueryResult map[string]interface{}

// Query executes a WQL query against a namespace (e.g. "root\\CIMV2") and
// returns one QueryResult per object.
func Query(ctx context.Context, namespace, query string) ([]QueryResult, error) {
	if runtime.GOOS != "windows" {
		return nil, fmt.Errorf("WMI queries only supported on Windows")
	}

	return queryWindows(ctx, namespace, query)
}

// GetPropertyString extracts a string property from a QueryResult.
func GetPropertyString(result QueryResult, name string) (string, bool) {
	val, ok := result[name]
	if !ok {
		return "", false
	}
	sval, ok := val.(string)
	return sval, ok
}

// GetPropertyInt extracts an integer property from a QueryResult. WMI
// uint32 properties (CIM_UINT32) arrive as uint32; signed variants as
// int32 or int64.
func GetPropertyInt(result QueryResult, name string) (int, bool) {
	val, ok := result[name]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint32:
		return int(v), true
	default:
		return 0, false
	}
}

// Registry hive constants for StdRegProv
const (
	HKEY_CLASSES_ROOT   uint32 = 0x80000000
	HKEY_CURRENT_USER   uint32 = 0x80000001
	HKEY_LOCAL_MACHINE  uint32 = 0x80000002
	HKEY_USERS          uint32 = 0x80000003
	HKEY_CURRENT_CONFIG uint32 = 0x80000005
)

// GetRegistryDWORD reads a DWORD value from the registry via WMI StdRegProv.
func GetRegistryDWORD(ctx context.Context, hive uint32, subKey, valueName string) (uint32, error) {
	if runtime.GOOS != "windows" {
		return 0, fmt.Errorf("registry queries only supported on Windows")
	}
	return getRegistryDWORDWindows(ctx, hive, subKey, valueName)
}

// GetRegistryString reads a string value from the registry via WMI StdRegProv.
func GetRegistryString(ctx context.Context, hive uint32, subKey, valueName string) (string, error) {
	if runtime.GOOS != "windows" {
		return "", fmt.Errorf("registry queries only supported on Windows")
	}
	return getRegistryStringWindows(ctx, hive, subKey, valueName)
}
