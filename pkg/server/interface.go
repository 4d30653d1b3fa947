/*
Package server implements msgpack IPC for n-gram score queries.

The server reads msgpack-encoded requests from stdin and writes responses
to stdout, one message per request, processed synchronously with
microsecond timing included in every response. The binary encoding keeps
messages small enough for a keyboard client to issue a query per keystroke.

A lookup request asks for the exact score of one n-gram key:

	{"id": "req_001", "k": "東京 都"}

A predict request asks for ranked continuations of a prefix:

	{"id": "req_002", "p": "東京", "l": 8}

Responses carry the request id, the result payload, and the elapsed
microseconds. Unknown or malformed messages produce an error response and
never terminate the session.
*/
package server

// LookupRequest asks for the exact decoded score of one key.
type LookupRequest struct {
	ID  string `msgpack:"id"`
	Key string `msgpack:"k"`
}

// LookupResponse answers a LookupRequest.
type LookupResponse struct {
	ID        string `msgpack:"id"`
	Value     uint64 `msgpack:"v"`
	Found     bool   `msgpack:"f"`
	TimeTaken int64  `msgpack:"t"` // microseconds
}

// PredictRequest asks for ranked continuations of a prefix.
type PredictRequest struct {
	ID     string `msgpack:"id"`
	Prefix string `msgpack:"p"`
	Limit  int    `msgpack:"l,omitempty"`
}

// PredictSuggestion is one ranked continuation.
type PredictSuggestion struct {
	Ngram string `msgpack:"w"`
	Count uint64 `msgpack:"v"`
}

// PredictResponse answers a PredictRequest.
type PredictResponse struct {
	ID          string              `msgpack:"id"`
	Suggestions []PredictSuggestion `msgpack:"s"`
	Count       int                 `msgpack:"c"`
	TimeTaken   int64               `msgpack:"t"` // microseconds
}

// StatusResponse signals readiness and health.
type StatusResponse struct {
	Status string `msgpack:"status"`
	Keys   uint64 `msgpack:"keys,omitempty"`
}

// ErrorResponse reports a request that could not be served.
type ErrorResponse struct {
	ID    string `msgpack:"id,omitempty"`
	Error string `msgpack:"error"`
	Code  int    `msgpack:"code"`
}

// request is the union the decoder reads into before dispatch: a message
// with a key is a lookup, one with a prefix is a predict.
type request struct {
	ID     string `msgpack:"id"`
	Key    string `msgpack:"k"`
	Prefix string `msgpack:"p"`
	Limit  int    `msgpack:"l"`
}
