//go:build windows

package wmi

import (
	"context"
	"fmt"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// session holds an initialized COM connection to one WMI namespace. Callers
// must call close exactly once; close also uninitializes COM for the thread.
type session struct {
	unknown *ole.IUnknown
	locator *ole.IDispatch
	service *ole.IDispatch
}

// connect initializes COM and connects the SWbemLocator to a namespace on
// the local machine.
func connect(namespace string) (*session, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		oleErr, ok := err.(*ole.OleError)
		// S_FALSE means COM was already initialized, which is fine
		if !ok || oleErr.Code() != 0x00000001 {
			return nil, fmt.Errorf("COM initialization failed: %w", err)
		}
	}

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		ole.CoUninitialize()
		return nil, fmt.Errorf("failed to create WMI locator: %w", err)
	}

	locator, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		unknown.Release()
		ole.CoUninitialize()
		return nil, fmt.Errorf("failed to get IDispatch: %w", err)
	}

	serviceRaw, err := oleutil.CallMethod(locator, "ConnectServer", ".", namespace)
	if err != nil {
		locator.Release()
		unknown.Release()
		ole.CoUninitialize()
		return nil, fmt.Errorf("failed to connect to %s: %w", namespace, err)
	}

	return &session{
		unknown: unknown,
		locator: locator,
		service: serviceRaw.ToIDispatch(),
	}, nil
}

func (s *session) close() {
	s.service.Release()
	s.locator.Release()
	s.unknown.Release()
	ole.CoUninitialize()
}

// queryWindows executes a WQL query and converts every returned object into
// a QueryResult map.
func queryWindows(ctx context.Context, namespace, query string) ([]QueryResult, error) {
	sess, err := connect(namespace)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	resultRaw, err := oleutil.CallMethod(sess.service, "ExecQuery", query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	result := resultRaw.ToIDispatch()
	defer result.Release()

	countRaw, err := oleutil.GetProperty(result, "Count")
	if err != nil {
		return nil, fmt.Errorf("failed to get count: %w", err)
	}
	count := int(countRaw.Val)

	results := make([]QueryResult, 0, count)

	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		itemRaw, err := oleutil.CallMethod(result, "ItemIndex", i)
		if err != nil {
			continue
		}
		item := itemRaw.ToIDispatch()

		qr, err := itemProperties(item)
		item.Release()
		if err != nil {
			continue
		}
		results = append(results, qr)
	}

	return results, nil
}

// itemProperties walks the Properties_ collection of a single WMI object and
// converts each variant to a plain Go value.
func itemProperties(item *ole.IDispatch) (QueryResult, error) {
	propsRaw, err := oleutil.GetProperty(item, "Properties_")
	if err != nil {
		return nil, err
	}
	props := propsRaw.ToIDispatch()
	defer props.Release()

	propCountRaw, err := oleutil.GetProperty(props, "Count")
	if err != nil {
		return nil, err
	}
	propCount := int(propCountRaw.Val)

	qr := make(QueryResult, propCount)

	for j := 0; j < propCount; j++ {
		propRaw, err := oleutil.CallMethod(props, "ItemIndex", j)
		if err != nil {
			continue
		}
		prop := propRaw.ToIDispatch()

		nameRaw, err := oleutil.GetProperty(prop, "Name")
		if err != nil {
			prop.Release()
			continue
		}

		valRaw, err := oleutil.GetProperty(prop, "Value")
		if err != nil {
			prop.Release()
			continue
		}

		qr[nameRaw.ToString()] = variantValue(valRaw)
		prop.Release()
	}

	return qr, nil
}

// variantValue converts an OLE variant to the Go type the property helpers
// expect.
func variantValue(v *ole.VARIANT) interface{} {
	switch v.VT {
	case ole.VT_NULL, ole.VT_EMPTY:
		return nil
	case ole.VT_BOOL:
		return v.Val != 0
	case ole.VT_I4, ole.VT_INT:
		return int32(v.Val)
	case ole.VT_UI4, ole.VT_UINT:
		return uint32(v.Val)
	case ole.VT_BSTR:
		return v.ToString()
	default:
		return v.Value()
	}
}

// stdRegProv connects to root\default and retrieves the StdRegProv registry
// provider class. The caller must release the returned dispatch and close
// the session, in that order.
func stdRegProv() (*session, *ole.IDispatch, error) {
	sess, err := connect(`root\default`)
	if err != nil {
		return nil, nil, err
	}

	regRaw, err := oleutil.CallMethod(sess.service, "Get", "StdRegProv")
	if err != nil {
		sess.close()
		return nil, nil, fmt.Errorf("failed to get StdRegProv: %w", err)
	}

	return sess, regRaw.ToIDispatch(), nil
}

// getRegistryDWORDWindows reads a DWORD registry value using WMI StdRegProv.
func getRegistryDWORDWindows(_ context.Context, hive uint32, subKey, valueName string) (uint32, error) {
	sess, reg, err := stdRegProv()
	if err != nil {
		return 0, err
	}
	defer sess.close()
	defer reg.Release()

	outParams, err := oleutil.CallMethod(reg, "GetDWORDValue", hive, subKey, valueName)
	if err != nil {
		return 0, fmt.Errorf("GetDWORDValue failed: %w", err)
	}
	result := outParams.ToIDispatch()
	defer result.Release()

	valueRaw, err := oleutil.GetProperty(result, "uValue")
	if err != nil {
		return 0, fmt.Errorf("failed to get uValue: %w", err)
	}

	return uint32(valueRaw.Val), nil
}

// getRegistryStringWindows reads a string registry value using WMI StdRegProv.
func getRegistryStringWindows(_ context.Context, hive uint32, subKey, valueName string) (string, error) {
	sess, reg, err := stdRegProv()
	if err != nil {
		return "", err
	}
	defer sess.close()
	defer reg.Release()

	outParams, err := oleutil.CallMethod(reg, "GetStringValue", hive, subKey, valueName)
	if err != nil {
		return "", fmt.Errorf("GetStringValue failed: %w", err)
	}
	result := outParams.ToIDispatch()
	defer result.Release()

	valueRaw, err := oleutil.GetProperty(result, "sValue")
	if err != nil {
		return "", fmt.Errorf("failed to get sValue: %w", err)
	}

	return valueRaw.ToString(), nil
}
