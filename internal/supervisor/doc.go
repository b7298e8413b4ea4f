// Package supervisor runs long-lived tasks and restarts them when they fail.
//
// A Task's Run function blocks while the task is healthy. Returning an error
// means the task failed: the supervisor logs it, waits the task's fixed Delay
// and runs it again, with no limit on attempts unless MaxAttempts is set.
// Returning nil, or cancelling the context, ends supervision.
//
// Two tasks are supervised by the relay: the MQTT connection (Client.Run
// returns when the connection drops) and the ownership store health check
// (Periodic returns on the first failed check).
package supervisor
