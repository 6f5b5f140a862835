package capability

import (
	"context"
	"fmt"

	"github.com/openhaus/camsync-core/internal/isapi/document"
)

// FetchDeviceInfo reads the static device identity document.
func (f *Fetcher) FetchDeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	raw, err := f.client.GetXML(ctx, PathDeviceInfo)
	if err != nil {
		return nil, fmt.Errorf("device info: %w", err)
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("device info: %w", err)
	}

	return &DeviceInfo{
		DeviceName:      doc.Field("deviceName").String(""),
		Model:           doc.Field("model").String(""),
		SerialNumber:    doc.Field("serialNumber").String(""),
		FirmwareVersion: doc.Field("firmwareVersion").String(""),
		MACAddress:      doc.Field("macAddress").String(""),
		Raw:             raw,
	}, nil
}

// FetchVideoInput reads the first video input channel document.
func (f *Fetcher) FetchVideoInput(ctx context.Context) (*VideoInput, error) {
	raw, err := f.client.GetXML(ctx, PathVideoInput)
	if err != nil {
		return nil, fmt.Errorf("video input: %w", err)
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("video input: %w", err)
	}

	return &VideoInput{
		Name:     doc.Field("name").String(""),
		Standard: doc.Field("videoInputStandard").String(""),
		Raw:      raw,
	}, nil
}
