// Package protolink implements an agent-to-agent (A2A) protocol:
// a task/message/artifact data model with a strict lifecycle state
// machine, pluggable transports (in-process, HTTP with retry, SSE
// streaming), a heartbeat-based discovery registry, and a JWT-backed
// authentication gate for cross-agent calls.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/kadirpekel/protolink/cmd/protolink@latest
//
// Build an agent:
//
//	card := a2a.NewAgentCard("echo", "echoes input", "http://localhost:8000")
//	tr := transport.NewHTTPTransport(transport.WithListenAddress(":8000"), transport.WithAgentCard(card))
//	ag := agent.New(card, tr)
//	ag.OnTask(func(ctx context.Context, task *a2a.Task) (*a2a.Task, error) {
//		last, _ := task.LastMessage()
//		return task, task.Complete("echo: " + a2a.ExtractText(last))
//	})
//	ag.Run(ctx)
//
// Call it from anywhere:
//
//	client := transport.NewHTTPTransport()
//	reply, err := client.SendMessage(ctx, "http://localhost:8000", a2a.NewUserMessage("hi"))
//
// The packages under pkg/ are layered bottom-up: a2a (data model),
// httpclient (retrying HTTP), transport (delivery), auth (gate),
// registry (discovery), session (conversation contexts), and agent
// (the runtime tying them together).
package protolink
