// Package engine provides the boundary between the audit core and the
// page-performance audit capability. It abstracts the details of how a page
// is actually measured, allowing the orchestrator to run audits without
// coupling to a specific navigation mechanism.
//
// The central contract is the execution context: Engine.NewSession allocates
// an isolated, exclusively owned session for exactly one audit attempt, and
// Session.Close releases it on every exit path. Sessions are never shared
// across attempts or tasks, which is what makes parallel audits safe.
package engine
