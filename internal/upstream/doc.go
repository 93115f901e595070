// Package upstream reads the UDUNITS-2 source repository: the release feed,
// the COPYRIGHT file and the XML documents under lib/ for a given release.
package upstream
