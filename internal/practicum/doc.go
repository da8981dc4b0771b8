// Package practicum talks to the homework review API.
//
// It owns the request (FetchStatus), the shape checks on the answer
// (ValidateResponse, DecodeResponse) and the status to text mapping
// (ParseStatus). Every failure is an *Error tagged with a Kind so the poll
// loop can decide what is recoverable.
package practicum
