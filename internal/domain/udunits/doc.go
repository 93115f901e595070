// Package udunits contains the domain vocabulary of the publisher: release
// versions, the fixed namespace prefix assigned to every UDUNITS-2 system
// document, and the error classes shared by all components.
package udunits
