// Package mqtt is the relay's broker client, a thin layer over
// github.com/eclipse/paho.mqtt.golang.
//
// The relay is a client of an external broker: devices publish telemetry to
// devices/{device_id}/data and receive stringified commands on
// devices/{device_id}/{command}.
//
// Reconnection is owned by the caller. Run connects and blocks until the
// connection is lost, returning the reason; wrapping it in a supervised task
// gives a fixed-interval, unbounded retry that stops with the context:
//
//	client := mqtt.New(cfg.MQTT)
//	client.SetLogger(logger)
//	_ = client.Subscribe("devices/climate01/data", 1, handler) // tracked, sent on connect
//	task := supervisor.Task{Name: "mqtt", Run: client.Run, Delay: cfg.GetReconnectInterval()}
//
// Subscriptions are tracked independently of the connection and restored after
// every connect. Handler panics are recovered and logged so that one bad
// message cannot break delivery for other topics.
//
// A retained presence document is kept on devicerelay/{client_id}/status,
// with a Last Will so that crashes show up as unexpected_disconnect.
package mqtt
