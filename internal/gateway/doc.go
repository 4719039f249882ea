// Package gateway serves stored Telegram files over HTTP.
//
// Two sources can produce a file's bytes. The bulk source reads fixed-size
// aligned blocks over MTProto with several workers and has no size limit;
// Chunked turns it into exact byte ranges. The direct source proxies the
// short-lived Bot API download URL and is limited to small files. Gateway
// tries the bulk source first when it is ready and the record knows its origin
// message, and falls back to the direct source as long as nothing has been
// sent to the client yet.
//
// All writes go through a Sink, which holds back headers until the first byte,
// blocks each producer until the client has taken its bytes, and reports a
// client that went away.
package gateway
