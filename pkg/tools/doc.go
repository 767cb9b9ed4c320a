// Package tools groups tool registration, dispatch, and MCP (Model Context
// Protocol) integration.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/mystic/pkg/tools/toolbox] - Tool type, registration of Go functions as tools, and the ToolBox dispatcher
//   - [github.com/germanamz/mystic/pkg/tools/mcpclient] - MCP client that turns the tools of a remote server into toolbox tools
//   - [github.com/germanamz/mystic/pkg/tools/mcpserver] - MCP server exposing the tools of a ToolBox over stdio or streamable HTTP
//
// The toolbox sub-package is the foundation layer. Both mcpclient and mcpserver
// depend on toolbox for the Tool type but are independent of each other.
package tools
