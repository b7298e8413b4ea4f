// Package command validates settings changes and relays them to devices.
//
// A change is checked in full before anything happens: an unknown field or a
// value outside its rule fails the whole change with no store write and no
// publish. An accepted change is persisted first and then published, one
// message per requested field, to devices/{device_id}/{command}.
//
// The two effects are not transactional. If the store write succeeds and a
// publish fails, Apply returns a *PublishError naming the fields that did not
// reach the broker. The device picks up the stored value on the next
// successful publish of that field.
package command
