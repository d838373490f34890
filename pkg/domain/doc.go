/*
Package domain contains the core models of switchboard.

It defines the conversation-flow graph handed to the voice-agent platform:
nodes, edges and the flow aggregate, plus the records that flow back from
calls (events, leads, deployments). The package is pure and free of I/O.

# Key Entities

  - Node: One step of the dialogue. Its Payload is a closed sum type with one
    variant per NodeKind (Dialogue, Extraction, FunctionCall, SmsSend,
    Transfer, Terminal).
  - Edge: A directed transition guarded by a Predicate (always, prompt, or a
    success/failure outcome).
  - Flow: The ordered node list, start node, global instruction and model
    choice for one deployment.
  - CallEvent: A call lifecycle webhook from the platform.
*/
package domain
