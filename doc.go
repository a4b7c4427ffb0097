// Package mcphost runs Model Context Protocol servers as child processes of a
// host application.
//
// A Registry starts servers under caller-chosen identifiers, writes JSON-RPC
// lines to their stdin and publishes every line they print as a named event:
// "mcp-stdout-<id>" and "mcp-stderr-<id>", followed by "mcp-exit-<id>" when
// the process ends.
//
// # Basic Usage
//
//	bus := mcphost.NewBus()
//	reg := mcphost.New(mcphost.WithEmitter(bus))
//	defer reg.StopAll()
//
//	bus.Listen(mcphost.StdoutEvent("fs"), func(line string) {
//	    fmt.Println("fs:", line)
//	})
//
//	res, err := reg.Start(ctx, mcphost.StartRequest{
//	    ID:      "fs",
//	    Command: []string{"npx", "-y", "@modelcontextprotocol/server-filesystem", "/tmp"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Message())
//
//	err = reg.Send(ctx, "fs", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
//
// # Commands
//
// Hosts that drive the registry with named commands and JSON arguments, for
// example from a UI, use a Dispatcher:
//
//	d, err := mcphost.NewDispatcher(reg)
//	outcome := d.Invoke(ctx, mcphost.CommandStartServer,
//	    json.RawMessage(`{"serverId":"fs","command":["cat"]}`))
//
// # MCP Clients
//
// NewTransport adapts a registry process to the go-sdk mcp.Transport, so an
// mcp.Client can talk to a server while it stays under registry control:
//
//	client := mcp.NewClient(&mcp.Implementation{Name: "host", Version: "v1"}, nil)
//	session, err := client.Connect(ctx, mcphost.NewTransport(reg, bus, req), nil)
//
// # Logging
//
// Logging is disabled unless a logger is supplied with WithLogger.
//
// # Error Handling
//
// Failures are reported as typed errors whose messages are suitable for
// display:
//
//	if err := reg.Send(ctx, "fs", msg); err != nil {
//	    if _, ok := errors.AsType[*mcphost.NotRunningError](err); ok {
//	        // start it first
//	    }
//	}
package mcphost
