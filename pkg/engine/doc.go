// Package engine is the composition root that turns a configuration file and a
// ToolBox into a running server. It builds the logger, the invoke middleware
// chain, and the telemetry observer, and selects one of the http, websocket,
// mcp-stdio, or mcp-http backends.
package engine
