// Package platform answers the questions the remediation guards ask about
// the host: is the process elevated, which OS version is running, and which
// Windows edition is installed (for log context).
package platform

import (
	"context"
	"fmt"
	"runtime"
)

// OSVersion identifies the running OS kernel.
type OSVersion struct {
	Major uint32
	Minor uint32
	Build uint32
}

func (v OSVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// Edition describes the installed Windows edition as recorded under
// SOFTWARE\Microsoft\Windows NT\CurrentVersion. Fields other than
// ProductName are best-effort; empty means the value was absent.
type Edition struct {
	ProductName    string
	DisplayVersion string
	CurrentBuild   string
	UBR            uint32
}

func (e Edition) String() string {
	s := e.ProductName
	if e.DisplayVersion != "" {
		s += " " + e.DisplayVersion
	}
	if e.CurrentBuild != "" {
		s += fmt.Sprintf(" (build %s.%d)", e.CurrentBuild, e.UBR)
	}
	return s
}

// IsElevated reports whether the current process token carries
// administrative rights. Always false off Windows.
func IsElevated() bool {
	return isElevated()
}

// Version returns the running OS version. Zero off Windows.
func Version() OSVersion {
	return osVersion()
}

// EditionInfo reads the installed edition details from the registry.
func EditionInfo(ctx context.Context) (Edition, error) {
	if runtime.GOOS != "windows" {
		return Edition{}, fmt.Errorf("edition info only available on Windows")
	}
	return editionInfo(ctx)
}
