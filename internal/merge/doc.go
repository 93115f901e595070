// Package merge combines the UDUNITS-2 system documents of one release into a
// single document.
//
// Every <unit> or <prefix> element of a system document is copied with its
// whole subtree relabeled under the namespace prefix assigned to that
// document (udunits2-accepted.xml -> a:unit, ...). The copies are then
// placed, in manifest order, under one u2:unit-system wrapper of a freshly
// built <udunits-2> root that declares every prefix used. Source trees are
// never modified.
package merge
