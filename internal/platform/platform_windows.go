//go:build windows

package platform

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/gw37/ej-esu/internal/wmi"
)

const currentVersionKey = `SOFTWARE\Microsoft\Windows NT\CurrentVersion`

func isElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

func osVersion() OSVersion {
	info := windows.RtlGetVersion()
	return OSVersion{
		Major: info.MajorVersion,
		Minor: info.MinorVersion,
		Build: info.BuildNumber,
	}
}

func editionInfo(ctx context.Context) (Edition, error) {
	var ed Edition

	name, err := wmi.GetRegistryString(ctx, wmi.HKEY_LOCAL_MACHINE, currentVersionKey, "ProductName")
	if err != nil {
		return ed, fmt.Errorf("read ProductName: %w", err)
	}
	ed.ProductName = name

	// DisplayVersion only exists on 20H2 and later; older builds miss it.
	ed.DisplayVersion, _ = wmi.GetRegistryString(ctx, wmi.HKEY_LOCAL_MACHINE, currentVersionKey, "DisplayVersion")
	ed.CurrentBuild, _ = wmi.GetRegistryString(ctx, wmi.HKEY_LOCAL_MACHINE, currentVersionKey, "CurrentBuildNumber")
	ed.UBR, _ = wmi.GetRegistryDWORD(ctx, wmi.HKEY_LOCAL_MACHINE, currentVersionKey, "UBR")

	return ed, nil
}
