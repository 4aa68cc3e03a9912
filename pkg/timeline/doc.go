// Package timeline defines the captured input events shared by recording and
// replay, the immutable Timeline sequence, key identifier normalisation and the
// JSON record shape used at the persistence boundary.
package timeline
