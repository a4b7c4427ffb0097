// Package mcp serves the registry commands as tools of a Model Context
// Protocol server.
//
// This lets an MCP client, such as an agent, start, feed and stop other MCP
// servers on the host through the same commands a host application uses.
// Tool arguments are validated by the command dispatcher; the server only
// translates outcomes into tool results.
package mcp
