// Package aggregator pools upstream API keys behind one local endpoint.
//
// A Service fetches the account's keys from the account endpoint, keeps the
// ones with a positive balance in a KeyPool and exposes a Proxy that forwards
// each request to the upstream API with the next key in rotation. Keys the
// upstream rejects (401, 403, 429) or that fail at the transport level are
// quarantined; when every key is quarantined the pool clears the quarantine
// and starts over from the first key.
package aggregator
