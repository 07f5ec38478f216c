// Package staging enumerates the files of an installed staging root.
//
// The resulting manifest is the harvester's input: one absolute path per
// regular file, in the order the filesystem yields them. Ordering is
// filesystem-dependent and deliberately not normalized.
package staging
