// Package id generates the delivery identifiers the broker attaches to every
// job handed out by get. A worker echoes the identifier on the matching done
// or requeue so the broker can clear its in-flight entry.
//
// # Format
//
// An ID is 16 bytes big-endian, rendered as 32 lowercase hex digits:
//
//	[8 bytes unix ms][4 bytes boot nonce][4 bytes counter]
//
// The nonce is drawn once per Generator, so identifiers minted before a
// broker restart never match ones minted after it. Within one Generator,
// string order is mint order, which the in-flight table relies on to find
// its oldest entry.
package id
