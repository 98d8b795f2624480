package gateway

import (
	"context"

	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// RoomDetail is the payload of a per-room detail fetch: the room record plus
// its member devices.
type RoomDetail struct {
	Room    model.Room     `json:"room"`
	Devices []model.Device `json:"devices"`
}

// Rooms returns all rooms with their backend-computed summary fields.
func (c *Client) Rooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	if err := c.get(ctx, "/rooms/", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// Room returns a single room record.
func (c *Client) Room(ctx context.Context, id string) (model.Room, error) {
	var room model.Room
	if err := c.get(ctx, "/rooms/"+id, nil, &room); err != nil {
		return model.Room{}, err
	}
	return room, nil
}

// RoomDevices returns a room's detail: the room plus its member device list.
func (c *Client) RoomDevices(ctx context.Context, id string) (RoomDetail, error) {
	var detail RoomDetail
	if err := c.get(ctx, "/rooms/"+id+"/details", nil, &detail); err != nil {
		return RoomDetail{}, err
	}
	return detail, nil
}

// CreateRoom creates a room and returns the created record.
func (c *Client) CreateRoom(ctx context.Context, name string) (model.Room, error) {
	req := map[string]string{"name": name}
	var room model.Room
	if err := c.post(ctx, "/rooms/", req, &room); err != nil {
		return model.Room{}, err
	}
	return room, nil
}

// RenameRoom changes a room's display name.
func (c *Client) RenameRoom(ctx context.Context, id, name string) error {
	req := map[string]string{"id": id, "name": name}
	return c.post(ctx, "/rooms/update-name", req, nil)
}

// DeleteRoom removes a room. Member devices become unassigned.
func (c *Client) DeleteRoom(ctx context.Context, id string) error {
	req := map[string]string{"id": id}
	return c.post(ctx, "/rooms/delete", req, nil)
}

// ControlRoom applies a bulk on/off action to every device in a room.
func (c *Client) ControlRoom(ctx context.Context, id string, action model.RoomAction) error {
	req := map[string]model.RoomAction{"action": action}
	return c.post(ctx, "/rooms/"+id+"/control", req, nil)
}

// AssignDevice adds a device to a room.
func (c *Client) AssignDevice(ctx context.Context, roomID, deviceID string) error {
	return c.post(ctx, "/rooms/"+roomID+"/devices/"+deviceID, nil, nil)
}

// UnassignDevice removes a device from a room.
func (c *Client) UnassignDevice(ctx context.Context, roomID, deviceID string) error {
	return c.delete(ctx, "/rooms/"+roomID+"/devices/"+deviceID)
}
