// Package interaction correlates outbound commands with their responses.
//
// Commands and responses travel as independent messages over a single
// duplex connection; the only thing tying a response to the command that
// caused it is the message_id echoed back in the response envelope. The
// Correlator keeps the table of in-flight calls:
//
//	corr := interaction.NewCorrelator(conn)
//
//	// Send a command and wait for its response.
//	resp, err := corr.Call(ctx, cmd)
//
//	// Feed every inbound response envelope through the correlator.
//	corr.HandleResponse(resp)
//
// Commands with an empty message_id are fire-and-forget: they are sent
// without registering a pending entry and no response is awaited.
// Responses that match no pending call are counted and dropped.
package interaction
