// Package extension is the activation/lifecycle core of the Party Box
// extension. The Coordinator owns the registry of live components,
// builds them in dependency order during activation, rebuilds the
// configuration-sensitive subset when configuration or workspace
// context changes, fires the startup connectivity probe, and tears
// everything down in reverse order on deactivation.
//
// The coordinator is the only place that mutates the component
// registry. Change listeners and the probe are delivered on the host's
// serialized event path; a generation counter makes recomposition
// last-writer-wins in case a host ever delivers events concurrently.
package extension
