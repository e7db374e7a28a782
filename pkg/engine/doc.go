// Package engine is the composition root of the service. It loads
// configuration (defaults, an optional YAML file, then the environment),
// builds the model client, the tool registry and the agent loop, and exposes
// them through a frontend-agnostic API. Frontends (the HTTP surface and the
// CLI) interact with Engine and observe run activity through an EventBus.
package engine
