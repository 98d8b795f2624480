package gateway

import (
	"context"

	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// SensorsByDevice returns the sensors owned by a device.
func (c *Client) SensorsByDevice(ctx context.Context, deviceID string) ([]model.Sensor, error) {
	var sensors []model.Sensor
	if err := c.get(ctx, "/sensors/device/"+deviceID, nil, &sensors); err != nil {
		return nil, err
	}
	return sensors, nil
}

// SetSensorEnabled sets a sensor's enabled flag.
func (c *Client) SetSensorEnabled(ctx context.Context, id string, enabled bool) error {
	req := map[string]bool{"enabled": enabled}
	return c.post(ctx, "/sensors/"+id+"/enable", req, nil)
}

// SetSensorThreshold sets a sensor's alerting bounds. A nil bound clears it.
func (c *Client) SetSensorThreshold(ctx context.Context, id string, minThreshold, maxThreshold *float64) error {
	req := map[string]any{
		"min_threshold": minThreshold,
		"max_threshold": maxThreshold,
	}
	return c.post(ctx, "/sensors/"+id+"/threshold", req, nil)
}

// ActuatorsByDevice returns the actuators owned by a device.
func (c *Client) ActuatorsByDevice(ctx context.Context, deviceID string) ([]model.Actuator, error) {
	var actuators []model.Actuator
	if err := c.get(ctx, "/actuators/device/"+deviceID, nil, &actuators); err != nil {
		return nil, err
	}
	return actuators, nil
}

// ControlActuator sets an actuator's boolean state.
func (c *Client) ControlActuator(ctx context.Context, id string, state bool) error {
	req := map[string]bool{"state": state}
	return c.post(ctx, "/actuators/"+id+"/control", req, nil)
}
