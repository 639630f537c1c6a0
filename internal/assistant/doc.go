// Package assistant relays a scheduling conversation between the user, the
// Anthropic Messages API and the calendar gateway.
//
// A Relay owns the conversation History for one session. Each Turn appends
// the user's message, sends the history with the calendar tool descriptors,
// executes any tool_use blocks the model returns against the gateway, and
// sends the tool results back for the final reply.
//
// Invariants:
//   - Every assistant tool_use message in History is immediately followed by
//     the user message carrying its tool_result blocks.
//   - A tool round is committed to History only after every tool in it ran.
//     A failing gateway call aborts the turn and leaves the round out.
//   - Malformed tool input and unknown tool names are returned to the model
//     as is_error tool results, never as turn failures.
package assistant
