// Command mcphost runs and inspects MCP servers through the process registry.
//
//	mcphost run              serve registry commands as JSON lines on stdin/stdout
//	mcphost serve            expose the registry commands as an MCP server on stdio
//	mcphost tools [id...]    list the tools of configured servers
//	mcphost config init      write a sample configuration file
//	mcphost config validate  check a configuration file
package main
