// Package finmath holds the pure money helpers shared by the CLI and the stub
// backend: EMI computation, offer breakdowns, INR formatting, IST date
// formatting and the input validators used before any network call.
//
// Nothing here performs I/O or keeps state.
package finmath
