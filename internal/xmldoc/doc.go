// Package xmldoc wraps antchfx/xmlquery for the handful of XML operations the
// publisher needs: parsing, child lookup by local name, namespace
// declaration discovery, detached tree copies and serialization.
//
// Parse failures and missing elements are reported as udunits.ErrStructural.
package xmldoc
