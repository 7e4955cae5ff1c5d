// Package discovery walks the nested build-artifact tree.
//
// Walk reports every directory with the names of the files directly inside
// it, parents before children, in name order, so manifests built from the
// same tree always list the same entries in the same order.
package discovery
