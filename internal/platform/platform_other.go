//go:build !windows

package platform

import (
	"context"
	"fmt"
)

func isElevated() bool {
	return false
}

func osVersion() OSVersion {
	return OSVersion{}
}

func editionInfo(ctx context.Context) (Edition, error) {
	return Edition{}, fmt.Errorf("edition info only available on Windows")
}
