// Package model defines the entities synchronized between the remote backend
// and the local canonical state: devices, sensors, actuators, rooms, and
// notifications.
//
// These types are shared by the gateway (wire format), the store (canonical
// collections), the resource cache, and the panel API. Optional value fields
// use pointers so that "no reading yet" is distinguishable from a zero value;
// the store's merge rules depend on that distinction (a list fetch that omits
// a sensor's value must never erase a previously known reading).
package model
