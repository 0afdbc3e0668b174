// Package iotask adapts a non-blocking TCP listening socket, and the
// connections accepted from it, to the [poller.Task] contract.
//
// Each poll of a [Connector] attempts exactly one accept, then one bounded
// read per connection. Nothing ever blocks: "not ready" conditions (EAGAIN
// and friends) are folded into a Pending outcome, and retried on the next
// sweep. Received bytes are handed to an application hook, which returns the
// bytes to write back, or an error, in which case a generic failure response
// is written instead.
//
// A Connector never resolves. It is rejected on a fatal I/O error (closing
// every socket it owns), or with an [*poller.AbortError] once cancelled, via
// [WithSignal] or [Connector.Close].
//
// Only Linux and Darwin are supported.
package iotask
