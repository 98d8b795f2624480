package gateway

import (
	"context"

	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// Devices returns the full device list. List responses do not carry nested
// sensors or actuators; use Device for detail.
//
// The /user-device prefix is the backend's legacy naming for device CRUD.
func (c *Client) Devices(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	if err := c.get(ctx, "/user-device/get-all-device", nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// Device returns a single device's detail, including nested sensors and
// actuators with their latest values.
func (c *Client) Device(ctx context.Context, id string) (model.Device, error) {
	var device model.Device
	if err := c.get(ctx, "/devices/"+id, nil, &device); err != nil {
		return model.Device{}, err
	}
	return device, nil
}

// AddDevice registers a new device with the backend and returns the created
// record.
func (c *Client) AddDevice(ctx context.Context, name string, deviceType model.DeviceType) (model.Device, error) {
	req := map[string]any{
		"name": name,
		"type": deviceType,
	}
	var device model.Device
	if err := c.post(ctx, "/user-device/add", req, &device); err != nil {
		return model.Device{}, err
	}
	return device, nil
}

// UpdateDevice updates a device's mutable attributes.
func (c *Client) UpdateDevice(ctx context.Context, device model.Device) error {
	return c.post(ctx, "/user-device/update", device, nil)
}

// SetDevicePower sets a device's power-enabled flag.
func (c *Client) SetDevicePower(ctx context.Context, id string, enabled bool) error {
	req := map[string]bool{"enabled": enabled}
	return c.post(ctx, "/devices/"+id+"/power", req, nil)
}
