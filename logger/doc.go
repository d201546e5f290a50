// Package logger provides structured logging for rpcclient using zerolog.
//
// Loggers are scoped per component (httpclient, sse, stream, rpc) and carry
// structured fields such as the stream session ID or the request URL.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("stream")
//	log.Info("reconnecting", logger.Fields(logger.FieldSessionID, id))
package logger
