// Package control provides the altitude-hold feedback controller.
//
// [PID] keeps the legacy discrete-time semantics of the reference
// airframe: per-sample integral accumulation and an un-normalized
// derivative, valid only at a fixed sampling rate. See the PID type
// documentation for the exact update law.
//
//	pid := control.NewPID(1.0, 0.1, 0.01)
//	out, err := pid.Compute(setpoint, measured)
//
// Controllers support live tuning through GetParams/SetParam.
package control
