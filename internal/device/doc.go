// Package device provides the Device Registry for the relay.
//
// The registry is the immutable catalogue of device types and of the device
// ids allowed to talk to the relay. It is built once at startup, validated as
// a whole, and then passed by reference to every component that needs it.
// Nothing mutates it afterwards, so it needs no locking.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                       Device Registry                        │
//	│                                                              │
//	│  ┌────────────────┐   ┌────────────────┐   ┌──────────────┐  │
//	│  │   Catalog      │   │   Registry     │   │  Validation  │  │
//	│  │ (catalog.go)   │──▶│ (registry.go)  │──▶│(validation.go│  │
//	│  │ • YAML file    │   │ • id → type    │   │ • JSON Schema│  │
//	│  │ • built-in     │   │ • topics       │   │   per type   │  │
//	│  └────────────────┘   └────────────────┘   └──────────────┘  │
//	└──────────────────────────────────────────────────────────────┘
//
// # Topics
//
// Every type maps a kind to a topic template containing {device_id}. The
// "data" kind is the telemetry topic; every other kind is a command, and a
// command exists only if the type has both a rule and a topic for it:
//
//	types:
//	  - id: climate
//	    topics:
//	      data: devices/{device_id}/data
//	      threshold: devices/{device_id}/threshold
//	    defaults: {threshold: 25}
//	    rules:
//	      threshold: {kind: number, min: 0, max: 40}
//	devices:
//	  - id: climate01
//	    type: climate
//
// # Usage
//
//	registry, err := device.Load(cfg.Registry.File) // "" selects the built-in catalog
//	if err != nil {
//	    return err
//	}
//	topic, err := registry.Topic("climate01", "threshold")
//	// topic == "devices/climate01/threshold"
package device
