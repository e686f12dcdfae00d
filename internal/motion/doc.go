// Package motion groups the motion authenticity evaluator.
//
// The evaluator is split into layers, each in its own package:
//
//   - geometry: point and polyline distance tests (no dependencies)
//   - path: randomized tracking path generation
//   - recorder: the per-attempt state machine fed by pointer samples
//   - features: pure statistics over a completed trace
//   - classify: threshold rules turning features into a verdict
//   - session: the single-owner event loop wrapping a recorder
//
// Dependency rule: a layer may only import layers listed above it.
// Nothing under motion performs I/O; persistence lives in internal/telemetry.
package motion
